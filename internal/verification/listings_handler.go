package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/pkg/jsonid"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

// listListings handles GET /api/admin/properties
func (h *Handler) listListings(c *gin.Context) {
	result, err := h.service.ListListings(c.Request.Context(), ListingFilter{
		Page:   pagination.ParseInt(c.Query("page"), 1),
		Limit:  pagination.ParseInt(c.Query("limit"), 10),
		Search: c.Query("search"),
		Type:   c.Query("type"),
	})
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch properties")
		return
	}
	c.JSON(http.StatusOK, result)
}

// updateListing handles PUT /api/admin/properties[/:id]
func (h *Handler) updateListing(c *gin.Context) {
	var req ListingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if id := c.Param("id"); id != "" {
		req.ID = jsonid.ID(id)
	}

	property, err := h.service.UpdateListing(c.Request.Context(), auth.CurrentUser(c).ID.String(), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// deleteListing handles DELETE /api/admin/properties[/:id] and ?id=
func (h *Handler) deleteListing(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}
	if err := h.service.DeleteListing(c.Request.Context(), auth.CurrentUser(c).ID.String(), jsonid.ID(id)); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to delete property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// approveListing handles POST /api/admin/properties/:id/approve
func (h *Handler) approveListing(c *gin.Context) {
	property, err := h.service.ApproveListing(c.Request.Context(), auth.CurrentUser(c), jsonid.ID(c.Param("id")))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to approve property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// rejectListing handles POST /api/admin/properties/:id/reject
func (h *Handler) rejectListing(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// a missing body is reported as a missing reason
	_ = c.ShouldBindJSON(&req)

	property, err := h.service.RejectListing(c.Request.Context(), auth.CurrentUser(c), jsonid.ID(c.Param("id")), req.Reason)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to reject property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// managedListings handles GET /api/dashboard/properties
func (h *Handler) managedListings(c *gin.Context) {
	properties, err := h.service.ManagedListings(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch properties")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "properties": properties})
}

// createListing handles POST /api/dashboard/properties
func (h *Handler) createListing(c *gin.Context) {
	var in ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, err := h.service.CreateListing(c.Request.Context(), auth.CurrentUser(c), in)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to create property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "property": property})
}
