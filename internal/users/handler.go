package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

// Handler handles HTTP requests for admin user management
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers user routes on an admin-guarded group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	u := router.Group("/users")
	{
		u.GET("", h.list)
		u.POST("", h.create)
		u.PATCH("", h.update)
		u.DELETE("", h.delete)

		u.GET("/stats", h.stats)
		u.GET("/:id", h.get)
		u.PATCH("/:id", h.update)
		u.DELETE("/:id", h.delete)
		u.POST("/:id/block", h.block)
		u.POST("/:id/reset-password", h.resetPassword)
	}
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), ListQuery{
		Page:   pagination.ParseInt(c.Query("page"), 1),
		Limit:  pagination.ParseInt(c.Query("limit"), 10),
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Status: c.Query("status"),
	})
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch user statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgCreateFieldsRequired})
		return
	}

	user, err := h.service.Create(c.Request.Context(), auth.CurrentUser(c), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if id := c.Param("id"); id != "" {
		req.ID = id
	}

	user, err := h.service.Update(c.Request.Context(), auth.CurrentUser(c), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}

	if err := h.service.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) block(c *gin.Context) {
	var req BlockRequest
	// an empty body means block
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	user, err := h.service.SetBlocked(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *Handler) resetPassword(c *gin.Context) {
	result, err := h.service.ResetPassword(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, result)
}
