package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	guard  *Guard
	logger *zap.Logger
}

func NewHandler(guard *Guard, logger *zap.Logger) *Handler {
	return &Handler{guard: guard, logger: logger}
}

// RegisterRoutes registers auth routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/ping", h.Ping)
		authGroup.GET("/session", RequireRoles(h.guard, h.logger), h.Session)
	}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

// Session returns the caller resolved from the auth cookie.
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c)})
}
