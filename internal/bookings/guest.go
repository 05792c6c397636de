package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/pagination"
	"rental-portal/admin-portal-backend/pkg/payments"
)

const (
	MsgCancelNotFound        = "Booking not found or you do not have permission to cancel it"
	MsgCannotCancel          = "This booking cannot be cancelled"
	MsgCancelWindow          = "Bookings cannot be cancelled within 24 hours of check-in"
	MsgPaymentFieldsRequired = "Booking ID, payment method, and amount are required"
	MsgPhoneRequired         = "Phone number is required for M-Pesa payments"
	MsgInvalidPhone          = "Invalid phone number format. Use 254XXXXXXXXX"
	MsgPaymentNotImplemented = "Payment method not yet implemented"
	MsgPaymentFailed         = "Failed to initiate M-Pesa payment. Please try again."
	MsgCannotPay             = "This booking cannot be paid"
	MsgAlreadyPaid           = "This booking has already been paid"
)

// cancelWindowHours is the minimum notice for a guest cancellation.
const cancelWindowHours = 24

// loadOwned returns the booking only if user made it; otherwise notFound.
func (s *Service) loadOwned(ctx context.Context, user *auth.User, rawID, notFound string) (*Booking, error) {
	b, err := s.load(ctx, rawID)
	if err != nil {
		if apperrors.StatusOf(err) == 404 {
			return nil, apperrors.NotFound(notFound)
		}
		return nil, err
	}
	if b.Customer.ID != user.ID.String() {
		return nil, apperrors.NotFound(notFound)
	}
	return b, nil
}

type GuestListResult struct {
	Bookings   []Booking       `json:"bookings"`
	Pagination pagination.Meta `json:"pagination"`
}

// ListForCustomer returns the caller's own bookings, newest first.
func (s *Service) ListForCustomer(ctx context.Context, user *auth.User, q ListQuery) (*GuestListResult, error) {
	f := q.filter()
	f.Search = ""
	f.CustomerID = user.ID.String()

	bookings, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	return &GuestListResult{
		Bookings:   bookings,
		Pagination: pagination.NewMeta(q.Page, q.Limit, int(total)),
	}, nil
}

// GetForCustomer returns one of the caller's bookings.
func (s *Service) GetForCustomer(ctx context.Context, user *auth.User, rawID string) (*Booking, error) {
	return s.loadOwned(ctx, user, rawID, MsgBookingNotFound)
}

type CancelResult struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking"`
	Message string   `json:"message"`
}

// Cancel lets a guest cancel a pending or confirmed booking at least 24
// hours before check-in.
func (s *Service) Cancel(ctx context.Context, user *auth.User, rawID, reason string) (*CancelResult, error) {
	b, err := s.loadOwned(ctx, user, rawID, MsgCancelNotFound)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		s.logger.Warn("Booking cannot be cancelled",
			zap.String("user_id", user.ID.String()),
			zap.String("booking_id", b.ID.String()),
			zap.String("status", string(b.Status)))
		return nil, apperrors.BadRequest(MsgCannotCancel)
	}
	if hours := b.StartDate.Sub(s.now()).Hours(); hours < cancelWindowHours {
		s.logger.Warn("Cancellation too close to check-in",
			zap.String("booking_id", b.ID.String()),
			zap.Float64("hours_until_check_in", hours))
		return nil, apperrors.BadRequest(MsgCancelWindow)
	}

	s.setStatus(b, StatusCancelled, user.ID.String(), strings.TrimSpace(reason))
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, apperrors.Internal("Cancellation processing failed", err)
	}
	s.logger.Info("Booking cancelled",
		zap.String("user_id", user.ID.String()),
		zap.String("booking_id", b.ID.String()),
		zap.String("property", b.PropertyName))

	data := map[string]interface{}{
		"bookingId":          b.ID.String(),
		"propertyId":         b.PropertyID,
		"propertyName":       b.PropertyName,
		"cancellationReason": reason,
		"refundAmount":       b.TotalAmount,
	}
	if b.ManagerID != "" {
		s.notifier.Notify(ctx, &notifications.Request{
			UserID:  b.ManagerID,
			Type:    notifications.TypeBookingCancelled,
			Title:   "Booking Cancelled",
			Message: fmt.Sprintf("A booking for %q has been cancelled by the customer.", b.PropertyName),
			Data:    withGuest(data, b.Customer.Name),
		})
	}
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  b.Customer.ID,
		Email:   b.Customer.Email,
		Type:    notifications.TypeBookingCancelled,
		Title:   "Booking Cancelled Successfully",
		Message: fmt.Sprintf("Your booking for %q has been cancelled. A refund will be processed within 3-5 business days.", b.PropertyName),
		Data:    data,
	})
	s.changed()

	return &CancelResult{
		Success: true,
		Booking: b,
		Message: "Booking cancelled successfully. A refund will be processed within 3-5 business days.",
	}, nil
}

// PaymentRequest is the body of POST /dashboard/bookings/:id/payment.
type PaymentRequest struct {
	PaymentMethod string  `json:"paymentMethod"`
	Amount        float64 `json:"amount"`
	PhoneNumber   string  `json:"phoneNumber"`
}

type PaymentResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	MerchantRequestID string `json:"merchantRequestId"`
}

// Pay starts a payment for one of the caller's bookings. Only M-Pesa STK
// push is supported.
func (s *Service) Pay(ctx context.Context, user *auth.User, rawID string, req PaymentRequest) (*PaymentResult, error) {
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if strings.TrimSpace(rawID) == "" || method == "" || req.Amount <= 0 {
		return nil, apperrors.BadRequest(MsgPaymentFieldsRequired)
	}
	if method != "mpesa" {
		return nil, apperrors.BadRequest(MsgPaymentNotImplemented)
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, apperrors.BadRequest(MsgPhoneRequired)
	}
	if !payments.ValidPhone(phone) {
		return nil, apperrors.BadRequest(MsgInvalidPhone)
	}

	b, err := s.loadOwned(ctx, user, rawID, MsgBookingNotFound)
	if err != nil {
		return nil, err
	}
	if !b.Status.Blocking() || b.Status == StatusCompleted {
		return nil, apperrors.BadRequest(MsgCannotPay)
	}
	if b.PaymentStatus == PaymentPaid {
		return nil, apperrors.BadRequest(MsgAlreadyPaid)
	}

	resp, err := s.gateway.STKPush(ctx, payments.STKRequest{
		Phone:       phone,
		Amount:      req.Amount,
		Reference:   "BOOKING-" + b.Reference,
		Description: "Payment for " + b.PropertyName,
	})
	if errors.Is(err, payments.ErrRejected) {
		desc := "Unknown error"
		if resp != nil && resp.ResponseDescription != "" {
			desc = resp.ResponseDescription
		}
		return nil, apperrors.BadRequest("STK Push failed: " + desc)
	}
	if err != nil {
		return nil, apperrors.Internal(MsgPaymentFailed, err)
	}

	b.PaymentMethod = &method
	b.CheckoutRequestID = &resp.CheckoutRequestID
	b.PaymentStatus = PaymentProcessing
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("STK push initiated",
		zap.String("user_id", user.ID.String()),
		zap.String("booking_id", b.ID.String()),
		zap.String("checkout_request_id", resp.CheckoutRequestID))

	return &PaymentResult{
		Success:           true,
		Message:           "STK Push sent successfully",
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
	}, nil
}

// HandleMpesaCallback settles the payment a callback refers to. Unknown
// checkout IDs are logged and ignored.
func (s *Service) HandleMpesaCallback(ctx context.Context, cb *payments.Callback) error {
	b, err := s.repo.GetByCheckoutRequestID(ctx, cb.CheckoutRequestID())
	if err != nil {
		return err
	}
	if b == nil {
		s.logger.Warn("M-Pesa callback for unknown checkout", zap.String("checkout_request_id", cb.CheckoutRequestID()))
		return nil
	}

	if cb.Succeeded() {
		b.PaymentStatus = PaymentPaid
		if receipt := cb.Receipt(); receipt != "" {
			b.PaymentReceipt = &receipt
		}
	} else {
		b.PaymentStatus = PaymentFailed
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return err
	}

	s.logger.Info("M-Pesa payment settled",
		zap.String("booking_id", b.ID.String()),
		zap.String("payment_status", string(b.PaymentStatus)))

	title, message := "Payment received", fmt.Sprintf("We received your payment for %q.", b.PropertyName)
	if !cb.Succeeded() {
		title, message = "Payment failed", fmt.Sprintf("Your M-Pesa payment for %q did not complete. Please try again.", b.PropertyName)
	}
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  b.Customer.ID,
		Phone:   b.Customer.Phone,
		Type:    notifications.TypeBookingPayment,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"bookingId":     b.ID.String(),
			"paymentStatus": string(b.PaymentStatus),
		},
	})
	s.changed()
	return nil
}
