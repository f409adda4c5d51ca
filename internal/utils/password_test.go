package utils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hashed)

	assert.True(t, h.Verify(ctx, "secret1", hashed))
	assert.False(t, h.Verify(ctx, "secret2", hashed))
}

func TestPasswordHasher_SaltedPerCall(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	a, err := h.Hash(ctx, "same")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify(ctx, "same", a))
	assert.True(t, h.Verify(ctx, "same", b))
}

func TestPasswordHasher_MalformedHashFailsClosed(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	for _, stored := range []string{"", "plain-text", "$2a$10$short"} {
		assert.False(t, h.Verify(ctx, "plain-text", stored), "stored=%q", stored)
	}
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Семафор свободен, но Acquire на отменённом контексте всё равно отказывает.
	_, err := h.Hash(ctx, "x")
	assert.Error(t, err)
	assert.False(t, h.Verify(ctx, "x", "$2a$04$abcdefghijklmnopqrstuu"))
}

func TestPasswordHasher_Concurrent(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hashed, err := h.Hash(ctx, "pw")
			if err != nil {
				errs <- err
				return
			}
			if !h.Verify(ctx, "pw", hashed) {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewPasswordHasher_CostFallback(t *testing.T) {
	h := NewPasswordHasher(99, 0)
	hashed, err := h.Hash(context.Background(), "pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
