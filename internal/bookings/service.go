package bookings

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/export"
	"rental-portal/admin-portal-backend/internal/metrics"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/pagination"
	"rental-portal/admin-portal-backend/pkg/payments"
	"rental-portal/admin-portal-backend/pkg/storage"
	"rental-portal/admin-portal-backend/pkg/workflows"
)

const (
	MsgBookingIDRequired       = "Booking ID is required"
	MsgBookingNotFound         = "Booking not found"
	MsgRejectionReasonRequired = "Rejection reason is required"
	MsgCannotApprove           = "Only pending bookings can be approved"
	MsgCannotReject            = "This booking cannot be rejected"
	MsgInvalidStatus           = "Invalid booking status"
	MsgInvalidPaymentStatus    = "Invalid payment status"
	MsgInvalidDates            = "End date must be after start date"
	MsgInvalidGuests           = "Guests must be at least 1"
)

// exportLimit caps the rows of a single export.
const exportLimit = 10000

// Options tune the service.
type Options struct {
	Gateway payments.Gateway
	// Archive receives a copy of every generated receipt. Optional.
	Archive storage.ObjectStore
	Now     func() time.Time
}

// Service implements booking management for admins and guests.
type Service struct {
	repo        Repository
	notifier    notifications.Notifier
	gateway     payments.Gateway
	archive     storage.ObjectStore
	logger      *zap.Logger
	now         func() time.Time
	bookingFlow *workflows.StateMachine
	disputeFlow *workflows.StateMachine
	onChange    func()
}

func NewService(repo Repository, notifier notifications.Notifier, logger *zap.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gateway := opts.Gateway
	if gateway == nil {
		gateway = payments.SimulatedGateway{}
	}
	return &Service{
		repo:        repo,
		notifier:    notifier,
		gateway:     gateway,
		archive:     opts.Archive,
		logger:      logger,
		now:         now,
		bookingFlow: workflows.NewBookingStateMachine(),
		disputeFlow: workflows.NewDisputeStateMachine(),
	}
}

// OnChange registers fn to run after every successful mutation.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Service) load(ctx context.Context, rawID string) (*Booking, error) {
	if strings.TrimSpace(rawID) == "" {
		return nil, apperrors.BadRequest(MsgBookingIDRequired)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.NotFound(MsgBookingNotFound)
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperrors.NotFound(MsgBookingNotFound)
	}
	return b, nil
}

// setStatus moves b to status and stamps the matching audit fields.
func (s *Service) setStatus(b *Booking, status Status, actorID, reason string) {
	now := s.now().UTC()
	switch status {
	case StatusConfirmed:
		b.ConfirmedAt = &now
		b.ConfirmedBy = &actorID
	case StatusRejected:
		b.RejectedAt = &now
		b.RejectedBy = &actorID
		b.RejectionReason = &reason
	case StatusCancelled:
		b.CancelledAt = &now
		if reason != "" {
			b.CancellationReason = &reason
		}
	}
	b.Status = status
	b.UpdatedAt = now
	metrics.BookingStatusChanges.WithLabelValues(string(status)).Inc()
}

// CompletePast completes bookings whose stay ended before today (UTC).
func (s *Service) CompletePast(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.repo.CompletePast(ctx, today)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Auto-completed bookings", zap.Int64("count", n))
		metrics.BookingStatusChanges.WithLabelValues(string(StatusCompleted)).Add(float64(n))
		s.changed()
	}
	return n, nil
}

// ListQuery is the parsed query string of GET /admin/bookings.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (q ListQuery) filter() ListFilter {
	f := ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	}
	if q.Status != "" && !strings.EqualFold(q.Status, "ALL") {
		f.Status = Status(strings.ToUpper(q.Status))
	}
	return f
}

type ListResult struct {
	Bookings   []Booking       `json:"bookings"`
	Pagination pagination.Meta `json:"pagination"`
	Stats      *Stats          `json:"stats"`
}

// List auto-completes finished stays, then returns a page of bookings.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if _, err := s.CompletePast(ctx); err != nil {
		// listing still works with stale statuses
		s.logger.Warn("Failed to auto-complete bookings", zap.Error(err))
	}

	bookings, total, err := s.repo.List(ctx, q.filter())
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Bookings:   bookings,
		Pagination: pagination.NewMeta(q.Page, q.Limit, int(total)),
		Stats:      stats,
	}, nil
}

// Stats counts bookings by status. Revenue covers confirmed and later stays.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case StatusPending:
			stats.Pending += row.Count
		case StatusConfirmed:
			stats.Confirmed += row.Count
			stats.Revenue += row.Amount
		case StatusCheckedIn, StatusActive:
			stats.Active += row.Count
			stats.Revenue += row.Amount
		case StatusCompleted:
			stats.Completed += row.Count
			stats.Revenue += row.Amount
		case StatusCancelled:
			stats.Cancelled += row.Count
		case StatusRejected:
			stats.Rejected += row.Count
		}
	}
	stats.Revenue = round2(stats.Revenue)
	return stats, nil
}

// UpdateRequest is a partial admin update; nil fields are left alone.
type UpdateRequest struct {
	ID            string         `json:"id"`
	Status        *Status        `json:"status"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
	StartDate     *time.Time     `json:"startDate"`
	EndDate       *time.Time     `json:"endDate"`
	Guests        *int           `json:"guests"`
	TotalAmount   *float64       `json:"totalAmount"`
}

func (s *Service) Update(ctx context.Context, actor *auth.User, req UpdateRequest) (*Booking, error) {
	b, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.StartDate != nil {
		b.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		b.EndDate = req.EndDate.UTC()
	}
	if !b.EndDate.After(b.StartDate) {
		return nil, apperrors.BadRequest(MsgInvalidDates)
	}
	b.Nights = NightsBetween(b.StartDate, b.EndDate)

	if req.Guests != nil {
		if *req.Guests < 1 {
			return nil, apperrors.BadRequest(MsgInvalidGuests)
		}
		b.Guests = *req.Guests
	}
	if req.TotalAmount != nil {
		b.TotalAmount = round2(*req.TotalAmount)
	}
	if req.PaymentStatus != nil {
		if !req.PaymentStatus.Valid() {
			return nil, apperrors.BadRequest(MsgInvalidPaymentStatus)
		}
		b.PaymentStatus = *req.PaymentStatus
	}
	if req.Status != nil && *req.Status != b.Status {
		if !req.Status.Valid() {
			return nil, apperrors.BadRequest(MsgInvalidStatus)
		}
		if !s.bookingFlow.CanTransition(string(b.Status), string(*req.Status)) {
			return nil, apperrors.BadRequest(fmt.Sprintf("Cannot change booking status from %s to %s", b.Status, *req.Status))
		}
		s.setStatus(b, *req.Status, actor.ID.String(), "")
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("Booking updated", zap.String("admin_id", actor.ID.String()), zap.String("booking_id", b.ID.String()))
	s.changed()
	return b, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.User, rawID string) error {
	b, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	found, err := s.repo.Delete(ctx, b.ID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound(MsgBookingNotFound)
	}
	s.logger.Info("Booking deleted", zap.String("admin_id", actor.ID.String()), zap.String("booking_id", b.ID.String()))
	s.changed()
	return nil
}

// Approve confirms a pending booking and tells the guest and the manager.
func (s *Service) Approve(ctx context.Context, actor *auth.User, rawID string) (*Booking, error) {
	b, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, apperrors.BadRequest(MsgCannotApprove)
	}

	s.setStatus(b, StatusConfirmed, actor.ID.String(), "")
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("Booking approved", zap.String("admin_id", actor.ID.String()), zap.String("booking_id", b.ID.String()))

	data := map[string]interface{}{
		"bookingId":    b.ID.String(),
		"propertyId":   b.PropertyID,
		"propertyName": b.PropertyName,
	}
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  b.Customer.ID,
		Email:   b.Customer.Email,
		Phone:   b.Customer.Phone,
		Type:    notifications.TypeBookingConfirmed,
		Title:   "Booking Confirmed",
		Message: fmt.Sprintf("Your booking for %q has been confirmed.", b.PropertyName),
		Data:    data,
	})
	if b.ManagerID != "" {
		s.notifier.Notify(ctx, &notifications.Request{
			UserID:  b.ManagerID,
			Type:    notifications.TypeBookingConfirmed,
			Title:   "New Booking Confirmed",
			Message: fmt.Sprintf("A booking for %q has been confirmed.", b.PropertyName),
			Data:    withGuest(data, b.Customer.Name),
		})
	}
	s.changed()
	return b, nil
}

// Reject declines a pending or confirmed booking with a reason.
func (s *Service) Reject(ctx context.Context, actor *auth.User, rawID, reason string) (*Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.BadRequest(MsgRejectionReasonRequired)
	}
	b, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return nil, apperrors.BadRequest(MsgCannotReject)
	}

	s.setStatus(b, StatusRejected, actor.ID.String(), reason)
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("Booking rejected", zap.String("admin_id", actor.ID.String()), zap.String("booking_id", b.ID.String()))

	data := map[string]interface{}{
		"bookingId":       b.ID.String(),
		"propertyId":      b.PropertyID,
		"propertyName":    b.PropertyName,
		"rejectionReason": reason,
	}
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  b.Customer.ID,
		Email:   b.Customer.Email,
		Phone:   b.Customer.Phone,
		Type:    notifications.TypeBookingRejected,
		Title:   "Booking Rejected",
		Message: fmt.Sprintf("Your booking for %q has been rejected. Reason: %s", b.PropertyName, reason),
		Data:    data,
	})
	if b.ManagerID != "" {
		s.notifier.Notify(ctx, &notifications.Request{
			UserID:  b.ManagerID,
			Type:    notifications.TypeBookingRejected,
			Title:   "Booking Rejected",
			Message: fmt.Sprintf("A booking for %q has been rejected. Reason: %s", b.PropertyName, reason),
			Data:    withGuest(data, b.Customer.Name),
		})
	}
	s.changed()
	return b, nil
}

// ExportTable returns every booking matching q as an export table.
func (s *Service) ExportTable(ctx context.Context, q ListQuery) (*export.Table, error) {
	f := q.filter()
	f.Limit, f.Offset = exportLimit, 0

	bookings, _, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	table := &export.Table{
		Name: "Bookings",
		Columns: []export.Column{
			{Key: "reference", Title: "Reference"},
			{Key: "property", Title: "Property"},
			{Key: "guest", Title: "Guest"},
			{Key: "email", Title: "Email"},
			{Key: "checkIn", Title: "Check-in"},
			{Key: "checkOut", Title: "Check-out"},
			{Key: "nights", Title: "Nights"},
			{Key: "guests", Title: "Guests"},
			{Key: "total", Title: "Total"},
			{Key: "status", Title: "Status"},
			{Key: "payment", Title: "Payment"},
			{Key: "createdAt", Title: "Created"},
		},
	}
	for _, b := range bookings {
		table.Rows = append(table.Rows, map[string]interface{}{
			"reference": b.Reference,
			"property":  b.PropertyName,
			"guest":     b.Customer.Name,
			"email":     b.Customer.Email,
			"checkIn":   b.StartDate,
			"checkOut":  b.EndDate,
			"nights":    b.Nights,
			"guests":    b.Guests,
			"total":     b.TotalAmount,
			"status":    string(b.Status),
			"payment":   string(b.PaymentStatus),
			"createdAt": b.CreatedAt,
		})
	}
	return table, nil
}

func withGuest(data map[string]interface{}, guest string) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["guestName"] = guest
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
