package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
)

// Handler serves the admin dashboard overview
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers dashboard routes on an admin-guarded group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/stats", h.stats)
}

func (h *Handler) stats(c *gin.Context) {
	if c.Query("refresh") == "true" {
		h.service.Invalidate()
	}
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch dashboard statistics")
		return
	}
	c.JSON(http.StatusOK, overview)
}
