package middleware

import (
	"context"
	"net/http"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/response"
	"repairhub/internal/rbac"

	"github.com/gin-gonic/gin"
)

type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// RequireLevel turns away requesters below min before a handler runs. It is
// a coarse gate for route groups; services still authorize every operation.
func RequireLevel(accounts AccountLoader, min rbac.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := AccountID(c)
		if id == 0 {
			abortUnauthorized(c, "UNAUTHORIZED", "Sign in required")
			return
		}

		a, err := accounts.GetByID(c.Request.Context(), id)
		if err != nil || !guard.EffectiveLevel(a).AtLeast(min) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}
