package middleware

import (
	"elearning/internal/logger"
	"elearning/internal/models"
	"elearning/internal/reqctx"
	"elearning/internal/utils/helpers"
	"fmt"
	"net/http"
)

// RequireRoles пропускает только перечисленные роли. Пустой список пропускает любого
// аутентифицированного пользователя.
func RequireRoles(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		roleSet[string(r)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := reqctx.GetIdentity(r.Context())
			if !ok {
				helpers.Error(w, http.StatusUnauthorized, msgNotAuthorized)
				return
			}
			if len(roleSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if _, found := roleSet[id.Role]; !found {
				logger.WithCtx(r.Context()).Warn("Доступ запрещён по роли")
				helpers.Error(w, http.StatusForbidden,
					fmt.Sprintf("User role %s is not authorized to access this route", id.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
