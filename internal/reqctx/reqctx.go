// internal/reqctx/reqctx.go
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	keyRequestID key = iota
	keyIdentity
)

// Identity: аутентифицированный пользователь текущего запроса.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(keyIdentity).(Identity)
	return v, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return id.UserID, true
}
