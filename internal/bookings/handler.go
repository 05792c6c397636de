package bookings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/export"
	"rental-portal/admin-portal-backend/pkg/pagination"
	"rental-portal/admin-portal-backend/pkg/payments"
)

// Handler handles HTTP requests for bookings
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdminRoutes registers booking management on an admin-guarded group
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	b := router.Group("/bookings")
	{
		b.GET("", h.list)
		b.PUT("", h.update)
		b.DELETE("", h.delete)
		b.GET("/stats", h.stats)
		b.GET("/export", h.export)

		b.PUT("/:id", h.update)
		b.DELETE("/:id", h.delete)
		b.POST("/:id/approve", h.approve)
		b.POST("/:id/reject", h.reject)

		b.GET("/reference/:reference", h.getByReference)
		b.POST("/reference/:reference/dispute/messages", h.addDisputeMessage)
		b.PUT("/reference/:reference/dispute/status", h.updateDisputeStatus)
		b.POST("/reference/:reference/dispute/resolve", h.resolveDispute)
	}
}

// RegisterDashboardRoutes registers guest routes on an authenticated group
func (h *Handler) RegisterDashboardRoutes(router *gin.RouterGroup) {
	b := router.Group("/bookings")
	{
		b.GET("", h.listOwn)
		b.GET("/:id", h.getOwn)
		b.POST("/:id/cancel", h.cancel)
		b.POST("/:id/payment", h.pay)
	}

	s := router.Group("/spending")
	{
		s.GET("", h.spending)
		s.GET("/export", h.exportSpending)
		s.GET("/:id/receipt", h.receipt)
	}
}

// RegisterPublicRoutes registers unauthenticated payment callbacks
func (h *Handler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/payments/mpesa/callback", h.mpesaCallback)
}

func listQuery(c *gin.Context) ListQuery {
	return ListQuery{
		Page:   pagination.ParseInt(c.Query("page"), 1),
		Limit:  pagination.ParseInt(c.Query("limit"), 10),
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), listQuery(c))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch bookings")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch booking statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	table, err := h.service.ExportTable(c.Request.Context(), listQuery(c))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to export bookings")
		return
	}
	if err := export.Send(c, format, "bookings", table); err != nil {
		h.logger.Error("Failed to export bookings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export bookings"})
	}
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

	booking, err := h.service.Update(c.Request.Context(), auth.CurrentUser(c), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}
	if err := h.service.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to delete booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) approve(c *gin.Context) {
	booking, err := h.service.Approve(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to approve booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(c *gin.Context) {
	var req reasonRequest
	// a missing body is reported as a missing reason
	_ = c.ShouldBindJSON(&req)

	booking, err := h.service.Reject(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req.Reason)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to reject booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) getByReference(c *gin.Context) {
	detail, err := h.service.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch booking")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) addDisputeMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	_ = c.ShouldBindJSON(&req)

	msg, err := h.service.AddDisputeMessage(c.Request.Context(), auth.CurrentUser(c), c.Param("reference"), req.Content)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) updateDisputeStatus(c *gin.Context) {
	var req struct {
		Status DisputeStatus `json:"status"`
	}
	_ = c.ShouldBindJSON(&req)

	thread, err := h.service.UpdateDisputeStatus(c.Request.Context(), auth.CurrentUser(c), c.Param("reference"), req.Status)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to update dispute")
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *Handler) resolveDispute(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgResolutionRequired})
		return
	}

	detail, err := h.service.ResolveDispute(c.Request.Context(), auth.CurrentUser(c), c.Param("reference"), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to resolve dispute")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) listOwn(c *gin.Context) {
	result, err := h.service.ListForCustomer(c.Request.Context(), auth.CurrentUser(c), listQuery(c))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch bookings")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getOwn(c *gin.Context) {
	booking, err := h.service.GetForCustomer(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) cancel(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.Cancel(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req.Reason)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) pay(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgPaymentFieldsRequired})
		return
	}

	result, err := h.service.Pay(c.Request.Context(), auth.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to process payment")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) mpesaCallback(c *gin.Context) {
	var cb payments.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		h.logger.Warn("Invalid M-Pesa callback", zap.Error(err))
	} else if err := h.service.HandleMpesaCallback(c.Request.Context(), &cb); err != nil {
		h.logger.Error("Failed to process M-Pesa callback", zap.Error(err),
			zap.String("checkout_request_id", cb.CheckoutRequestID()))
	}
	// Daraja retries anything but an accepted acknowledgement
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *Handler) spending(c *gin.Context) {
	report, err := h.service.Spending(c.Request.Context(), auth.CurrentUser(c), c.Query("status"), c.Query("period"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to fetch spending data")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) exportSpending(c *gin.Context) {
	format := export.FormatExcel
	if raw := c.Query("format"); raw != "" {
		var err error
		if format, err = export.ParseFormat(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	table, err := h.service.SpendingTable(c.Request.Context(), auth.CurrentUser(c), c.Query("status"), c.Query("period"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to export spending data")
		return
	}
	if err := export.Send(c, format, "spending", table); err != nil {
		h.logger.Error("Failed to export spending data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export spending data"})
	}
}

func (h *Handler) receipt(c *gin.Context) {
	data, filename, err := h.service.Receipt(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.logger, err, "Failed to generate receipt")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
