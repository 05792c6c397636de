package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/settings")
	{
		s.GET("/profile", h.GetProfile)
		s.PUT("/profile", h.UpdateProfile)

		s.GET("/notifications", h.GetNotifications)
		s.PUT("/notifications", h.UpdateNotifications)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var payload ProfileUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgProfileFieldsRequired})
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), auth.CurrentUser(c), payload)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update profile. Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    profile,
		"message": "Profile updated successfully",
	})
}

func (h *Handler) GetNotifications(c *gin.Context) {
	prefs, err := h.service.GetNotifications(c.Request.Context(), auth.CurrentUser(c).ID.String())
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch notification settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": prefs})
}

func (h *Handler) UpdateNotifications(c *gin.Context) {
	var payload NotificationPreferences
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification settings"})
		return
	}

	prefs, err := h.service.UpdateNotifications(c.Request.Context(), auth.CurrentUser(c).ID.String(), &payload)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update notification settings. Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": prefs,
		"message":  "Notification settings updated successfully",
	})
}
