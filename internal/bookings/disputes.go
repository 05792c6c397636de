package bookings

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/notifications"
)

const (
	MsgDisputeNotFound      = "No dispute found for this booking"
	MsgMessageRequired      = "Message content is required"
	MsgInvalidDisputeStatus = "Invalid dispute status"
	MsgDisputeResolved      = "This dispute has already been resolved"
	MsgResolutionRequired   = "Resolution type and details are required"
	MsgInvalidResolution    = "Invalid resolution type"
	MsgResolutionAmount     = "Resolution amount must be between 0 and the booking total"
)

func (s *Service) loadByReference(ctx context.Context, reference string) (*Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperrors.NotFound(MsgBookingNotFound)
	}
	b, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperrors.NotFound(MsgBookingNotFound)
	}
	return b, nil
}

func (s *Service) loadDispute(ctx context.Context, reference string) (*Booking, *Dispute, error) {
	b, err := s.loadByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.repo.GetDispute(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, apperrors.NotFound(MsgDisputeNotFound)
	}
	return b, d, nil
}

func (s *Service) thread(ctx context.Context, d *Dispute) (*DisputeThread, error) {
	msgs, err := s.repo.ListDisputeMessages(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []DisputeMessage{}
	}
	return &DisputeThread{Dispute: *d, Messages: msgs}, nil
}

// GetByReference returns a booking with its dispute thread, if any.
func (s *Service) GetByReference(ctx context.Context, reference string) (*Detail, error) {
	b, err := s.loadByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Booking: *b}

	d, err := s.repo.GetDispute(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if d != nil {
		if detail.Dispute, err = s.thread(ctx, d); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func adminName(actor *auth.User) string {
	name := strings.TrimSpace(actor.FirstName + " " + actor.LastName)
	if name == "" {
		return "Admin Support"
	}
	return name
}

// AddDisputeMessage appends an admin message to the dispute thread.
func (s *Service) AddDisputeMessage(ctx context.Context, actor *auth.User, reference, content string) (*DisputeMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.BadRequest(MsgMessageRequired)
	}
	b, d, err := s.loadDispute(ctx, reference)
	if err != nil {
		return nil, err
	}
	if d.Status == DisputeResolved {
		return nil, apperrors.BadRequest(MsgDisputeResolved)
	}

	msg := &DisputeMessage{
		ID:         uuid.New(),
		DisputeID:  d.ID,
		Sender:     "admin",
		SenderName: adminName(actor),
		Content:    content,
		Timestamp:  s.now().UTC(),
	}
	if err := s.repo.AddDisputeMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.notifyDispute(ctx, b, "New message on your dispute", content)
	return msg, nil
}

// UpdateDisputeStatus moves a dispute between OPEN, IN_PROGRESS and RESOLVED.
func (s *Service) UpdateDisputeStatus(ctx context.Context, actor *auth.User, reference string, status DisputeStatus) (*DisputeThread, error) {
	switch status {
	case DisputeOpen, DisputeInProgress, DisputeResolved:
	default:
		return nil, apperrors.BadRequest(MsgInvalidDisputeStatus)
	}
	b, d, err := s.loadDispute(ctx, reference)
	if err != nil {
		return nil, err
	}
	if d.Status != status {
		if !s.disputeFlow.CanTransition(string(d.Status), string(status)) {
			return nil, apperrors.BadRequest(fmt.Sprintf("Cannot change dispute status from %s to %s", d.Status, status))
		}
		now := s.now().UTC()
		d.Status = status
		d.UpdatedAt = now
		if status == DisputeResolved {
			by := actor.ID.String()
			d.ResolvedAt = &now
			d.ResolvedBy = &by
		}
		if err := s.repo.UpdateDispute(ctx, d); err != nil {
			return nil, err
		}
		s.logger.Info("Dispute status changed",
			zap.String("admin_id", actor.ID.String()),
			zap.String("reference", b.Reference),
			zap.String("status", string(status)))
		s.notifyDispute(ctx, b, "Dispute updated", fmt.Sprintf("Your dispute for booking %s is now %s.", b.Reference, status))
	}
	return s.thread(ctx, d)
}

// ResolveRequest is the body of POST .../dispute/resolve.
type ResolveRequest struct {
	Type    ResolutionType `json:"type"`
	Amount  float64        `json:"amount"`
	Details string         `json:"details"`
}

// ResolveDispute closes a dispute and records its outcome. Refunds update the
// booking's payment status.
func (s *Service) ResolveDispute(ctx context.Context, actor *auth.User, reference string, req ResolveRequest) (*Detail, error) {
	req.Details = strings.TrimSpace(req.Details)
	if req.Type == "" || req.Details == "" {
		return nil, apperrors.BadRequest(MsgResolutionRequired)
	}
	if !req.Type.Valid() {
		return nil, apperrors.BadRequest(MsgInvalidResolution)
	}

	b, d, err := s.loadDispute(ctx, reference)
	if err != nil {
		return nil, err
	}
	if d.Status == DisputeResolved {
		return nil, apperrors.BadRequest(MsgDisputeResolved)
	}

	amount := round2(req.Amount)
	switch req.Type {
	case ResolutionFullRefund:
		amount = b.TotalAmount
	case ResolutionNoRefund:
		amount = 0
	}
	if amount < 0 || amount > b.TotalAmount {
		return nil, apperrors.BadRequest(MsgResolutionAmount)
	}

	now := s.now().UTC()
	by := actor.ID.String()
	d.Status = DisputeResolved
	d.ResolutionType = &req.Type
	d.ResolutionAmount = &amount
	d.ResolutionDetails = &req.Details
	d.ResolvedAt = &now
	d.ResolvedBy = &by
	d.UpdatedAt = now
	if err := s.repo.UpdateDispute(ctx, d); err != nil {
		return nil, err
	}

	refund := PaymentStatus("")
	switch {
	case req.Type == ResolutionFullRefund:
		refund = PaymentRefunded
	case req.Type == ResolutionPartialRefund && amount > 0:
		refund = PaymentPartiallyRefunded
	}
	if refund != "" {
		b.PaymentStatus = refund
		b.UpdatedAt = now
		if err := s.repo.Update(ctx, b); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Dispute resolved",
		zap.String("admin_id", actor.ID.String()),
		zap.String("reference", b.Reference),
		zap.String("type", string(req.Type)),
		zap.Float64("amount", amount))
	s.notifyDispute(ctx, b, "Dispute resolved", req.Details)
	s.changed()

	thread, err := s.thread(ctx, d)
	if err != nil {
		return nil, err
	}
	return &Detail{Booking: *b, Dispute: thread}, nil
}

func (s *Service) notifyDispute(ctx context.Context, b *Booking, title, message string) {
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  b.Customer.ID,
		Email:   b.Customer.Email,
		Type:    notifications.TypeDisputeUpdated,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"bookingId": b.ID.String(),
			"reference": b.Reference,
		},
	})
}
