package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
)

// RequireRoles aborts the request unless the guard authenticates a user with
// one of roles. The user is then available through CurrentUser.
func RequireRoles(guard *Guard, logger *zap.Logger, roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := guard.Authenticate(c.Request, roles...)
		if err != nil {
			if apperrors.StatusOf(err) < 500 {
				logger.Debug("Request rejected by auth guard",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
			}
			apperrors.Respond(c, logger, err, MsgAuthenticationError)
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// RequireAdmin is RequireRoles for the admin surface.
func RequireAdmin(guard *Guard, logger *zap.Logger) gin.HandlerFunc {
	return RequireRoles(guard, logger, AdminRoles...)
}
