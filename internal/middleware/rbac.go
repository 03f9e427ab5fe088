package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/models"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

// RequirePermission allows the request when the principal holds flag or canAccessAll.
// It must run after RequireSession.
func RequirePermission(flag models.PermissionFlag) gin.HandlerFunc {
	return authorize(func(p models.Permissions) bool { return p.Has(flag) })
}

// RequireMenu allows the request when menu id is visible to the principal.
func RequireMenu(id string) gin.HandlerFunc {
	return authorize(func(p models.Permissions) bool { return p.CanSeeMenu(id) })
}

func authorize(allowed func(models.Permissions) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allowed(user.Permissions) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
