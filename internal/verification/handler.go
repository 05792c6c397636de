package verification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/export"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

const (
	msgListFailed   = "Failed to fetch properties for verification"
	msgUpdateFailed = "Failed to update property verification"
)

// Handler handles HTTP requests for property verification
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new verification handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers listing and verification routes on an admin-guarded group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	p := router.Group("/properties")
	{
		p.GET("", h.listListings)
		p.PUT("", h.updateListing)
		p.PUT("/:id", h.updateListing)
		p.DELETE("", h.deleteListing)
		p.DELETE("/:id", h.deleteListing)
		p.POST("/:id/approve", h.approveListing)
		p.POST("/:id/reject", h.rejectListing)
	}

	v := router.Group("/properties/verification")
	{
		v.GET("", h.listProperties)
		v.POST("", h.transition)
		v.PUT("", h.bulkTransition)

		v.GET("/checklist", h.getChecklist)
		v.GET("/export", h.exportProperties)
		v.GET("/:id", h.getProperty)
		v.GET("/:id/history", h.getHistory)
	}
}

// RegisterDashboardRoutes registers a manager's own listings on an authenticated group
func (h *Handler) RegisterDashboardRoutes(router *gin.RouterGroup) {
	router.GET("/properties", h.managedListings)
	router.POST("/properties", h.createListing)
}

// listProperties handles GET /api/admin/properties/verification
func (h *Handler) listProperties(c *gin.Context) {
	filter := listFilterFromQuery(c)

	result, err := h.service.ListProperties(c.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(c, h.logger, err, msgListFailed)
		return
	}

	c.JSON(http.StatusOK, result)
}

func listFilterFromQuery(c *gin.Context) ListFilter {
	status := Status(c.DefaultQuery("status", string(StatusAll)))
	if status == "" {
		status = StatusAll
	}
	return ListFilter{
		Page:   pagination.ParseInt(c.Query("page"), 1),
		Limit:  pagination.ParseInt(c.Query("limit"), 10),
		Search: c.Query("search"),
		Status: status,
	}
}

// transition handles POST /api/admin/properties/verification
func (h *Handler) transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgIDAndActionRequired})
		return
	}

	user := auth.CurrentUser(c)
	property, err := h.service.Transition(c.Request.Context(), user.ID.String(), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, msgUpdateFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Property verification " + string(req.Action) + " completed successfully",
		"property": property,
	})
}

// bulkTransition handles PUT /api/admin/properties/verification
func (h *Handler) bulkTransition(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgIDsRequired})
		return
	}

	user := auth.CurrentUser(c)
	result, err := h.service.BulkTransition(c.Request.Context(), user.ID.String(), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, msgUpdateFailed)
		return
	}

	body := gin.H{
		"success":           true,
		"message":           "Bulk " + string(req.Action) + " completed",
		"updatedCount":      result.UpdatedCount,
		"updatedProperties": result.UpdatedProperties,
	}
	if len(result.Errors) > 0 {
		body["errors"] = result.Errors
	}
	c.JSON(http.StatusOK, body)
}

// getChecklist handles GET /api/admin/properties/verification/checklist
func (h *Handler) getChecklist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"steps":         h.service.Checklist(),
		"totalCriteria": TotalCriteria(),
	})
}

// getProperty handles GET /api/admin/properties/verification/:id
func (h *Handler) getProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": MsgPropertyNotFound})
		return
	}

	detail, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, h.logger, err, msgListFailed)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// getHistory handles GET /api/admin/properties/verification/:id/history
func (h *Handler) getHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": MsgPropertyNotFound})
		return
	}

	events, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch verification history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// exportProperties handles GET /api/admin/properties/verification/export
func (h *Handler) exportProperties(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := listFilterFromQuery(c)
	filter.Page, filter.Limit = 1, int(^uint(0)>>1)

	result, err := h.service.ListProperties(c.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(c, h.logger, err, msgListFailed)
		return
	}

	if err := export.Send(c, format, "property-verification", exportTable(result.Properties)); err != nil {
		h.logger.Error("Failed to export verification queue", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export properties"})
	}
}

func exportTable(props []PropertySummary) *export.Table {
	table := &export.Table{
		Name: "Verification",
		Columns: []export.Column{
			{Key: "id", Title: "ID"},
			{Key: "name", Title: "Property"},
			{Key: "location", Title: "Location"},
			{Key: "manager", Title: "Manager"},
			{Key: "status", Title: "Status"},
			{Key: "progress", Title: "Checklist %"},
			{Key: "submittedAt", Title: "Submitted"},
			{Key: "verifiedAt", Title: "Verified"},
			{Key: "rejectionReason", Title: "Rejection Reason"},
		},
	}
	for _, p := range props {
		table.Rows = append(table.Rows, map[string]interface{}{
			"id":              p.ID,
			"name":            p.Name,
			"location":        p.Location,
			"manager":         p.Manager.FullName(),
			"status":          string(p.VerificationStatus),
			"progress":        p.Progress,
			"submittedAt":     p.SubmittedAt,
			"verifiedAt":      p.VerifiedAt,
			"rejectionReason": p.RejectionReason,
		})
	}
	return table
}
