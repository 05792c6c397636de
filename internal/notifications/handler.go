package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

// Upgrader attaches an authenticated user to a realtime connection.
type Upgrader interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type Handler struct {
	service *Service
	ws      Upgrader
	logger  *zap.Logger
}

func NewHandler(service *Service, ws Upgrader, logger *zap.Logger) *Handler {
	return &Handler{service: service, ws: ws, logger: logger}
}

// RegisterRoutes registers notification routes on an authenticated group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	n := router.Group("/notifications")
	{
		n.GET("", h.list)
		n.PUT("/read-all", h.markAllRead)
		n.PUT("/:id/read", h.markRead)
		if h.ws != nil {
			n.GET("/ws", h.connect)
		}
	}
}

func (h *Handler) list(c *gin.Context) {
	user := auth.CurrentUser(c)
	page := pagination.ParseInt(c.Query("page"), 1)
	limit := pagination.ParseInt(c.Query("limit"), 20)

	result, err := h.service.List(c.Request.Context(), user.ID.String(), page, limit)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch notifications")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) markRead(c *gin.Context) {
	user := auth.CurrentUser(c)
	if err := h.service.MarkRead(c.Request.Context(), user.ID.String(), c.Param("id")); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) markAllRead(c *gin.Context) {
	user := auth.CurrentUser(c)
	n, err := h.service.MarkAllRead(c.Request.Context(), user.ID.String())
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updatedCount": n})
}

func (h *Handler) connect(c *gin.Context) {
	user := auth.CurrentUser(c)
	if err := h.ws.Serve(c.Writer, c.Request, user.ID.String()); err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Warn("Failed to open notification socket", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
}
