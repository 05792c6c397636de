package calendar

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
)

// Handler handles HTTP requests for property calendars
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterDashboardRoutes registers calendar management on an authenticated group
func (h *Handler) RegisterDashboardRoutes(router *gin.RouterGroup) {
	p := router.Group("/properties/:id")
	{
		p.GET("/calendar", h.get)
		p.POST("/block-dates", h.blockDates)
		p.POST("/special-pricing", h.setSpecialPricing)
		p.DELETE("/blocked-dates/:eventId", h.removeBlocked)
		p.DELETE("/special-pricing/:eventId", h.removePricing)
	}
}

// RegisterPublicRoutes registers availability lookups
func (h *Handler) RegisterPublicRoutes(router *gin.RouterGroup) {
	p := router.Group("/properties/:id")
	{
		p.GET("/check-availability", h.checkAvailability)
		p.POST("/check-availability", h.checkAvailability)
		p.GET("/booked-dates", h.bookedDates)
	}
}

func (h *Handler) get(c *gin.Context) {
	out, err := h.service.Get(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), c.Query("from"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch calendar data")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) blockDates(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	blocked, err := h.service.BlockDates(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to block dates")
		return
	}
	c.JSON(http.StatusCreated, blocked)
}

func (h *Handler) setSpecialPricing(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	pricing, err := h.service.SetSpecialPricing(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to set special pricing")
		return
	}
	c.JSON(http.StatusCreated, pricing)
}

func (h *Handler) removeBlocked(c *gin.Context) {
	if err := h.service.RemoveBlocked(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), c.Param("eventId")); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to remove blocked dates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) removePricing(c *gin.Context) {
	if err := h.service.RemovePricing(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), c.Param("eventId")); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to remove special pricing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type rangeRequest struct {
	StartDate string `json:"startDate" form:"startDate"`
	EndDate   string `json:"endDate" form:"endDate"`
}

func (h *Handler) checkAvailability(c *gin.Context) {
	var req rangeRequest
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgDatesRequired})
		return
	}

	out, err := h.service.CheckAvailability(c.Request.Context(), c.Param("id"), req.StartDate, req.EndDate)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to check availability")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) bookedDates(c *gin.Context) {
	ranges, err := h.service.BookedDates(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch booked dates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookedDates": ranges})
}
