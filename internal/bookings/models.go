package bookings

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status is the booking lifecycle status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusActive,
		StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Blocking reports whether a booking in this status occupies its dates.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusRejected
}

// PaymentStatus tracks money movement for a booking.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentProcessing, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// Customer is the guest who made the booking.
type Customer struct {
	ID    string `json:"id" db:"customer_id"`
	Name  string `json:"name" db:"customer_name"`
	Email string `json:"email" db:"customer_email"`
	Phone string `json:"phone,omitempty" db:"customer_phone"`
}

// Booking is a reservation of a property for a date range.
type Booking struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Reference    string    `json:"reference" db:"reference"`
	PropertyID   int64     `json:"propertyId" db:"property_id"`
	PropertyName string    `json:"propertyName" db:"property_name"`
	Location     string    `json:"location,omitempty" db:"location"`
	ManagerID    string    `json:"managerId" db:"manager_id"`
	Customer     `json:"customer"`

	StartDate   time.Time `json:"startDate" db:"start_date"`
	EndDate     time.Time `json:"endDate" db:"end_date"`
	Nights      int       `json:"nights" db:"nights"`
	Guests      int       `json:"guests" db:"guests"`
	Subtotal    float64   `json:"subtotal" db:"subtotal"`
	ServiceFee  float64   `json:"serviceFee" db:"service_fee"`
	Taxes       float64   `json:"taxes" db:"taxes"`
	TotalAmount float64   `json:"totalAmount" db:"total_amount"`
	Currency    string    `json:"currency" db:"currency"`

	Status            Status        `json:"status" db:"status"`
	PaymentStatus     PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentMethod     *string       `json:"paymentMethod,omitempty" db:"payment_method"`
	CheckoutRequestID *string       `json:"checkoutRequestId,omitempty" db:"checkout_request_id"`
	PaymentReceipt    *string       `json:"paymentReceipt,omitempty" db:"payment_receipt"`

	ConfirmedAt        *time.Time `json:"confirmedAt,omitempty" db:"confirmed_at"`
	ConfirmedBy        *string    `json:"confirmedBy,omitempty" db:"confirmed_by"`
	RejectedAt         *time.Time `json:"rejectedAt,omitempty" db:"rejected_at"`
	RejectedBy         *string    `json:"rejectedBy,omitempty" db:"rejected_by"`
	RejectionReason    *string    `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellationReason,omitempty" db:"cancellation_reason"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NightsBetween counts whole nights, rounding partial days up.
func NightsBetween(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// Overlaps reports whether [start, end] intersects the booking's stay, both
// ranges inclusive.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return !b.StartDate.After(end) && !b.EndDate.Before(start)
}

// Stats summarises bookings by status for the admin list.
type Stats struct {
	Total     int64   `json:"total"`
	Pending   int64   `json:"pending"`
	Confirmed int64   `json:"confirmed"`
	Active    int64   `json:"active"`
	Completed int64   `json:"completed"`
	Cancelled int64   `json:"cancelled"`
	Rejected  int64   `json:"rejected"`
	Revenue   float64 `json:"revenue"`
}

// StatusSummary is one GROUP BY status row.
type StatusSummary struct {
	Status Status  `db:"status"`
	Count  int64   `db:"count"`
	Amount float64 `db:"amount"`
}

// DisputeStatus is the dispute lifecycle status.
type DisputeStatus string

const (
	DisputeOpen       DisputeStatus = "OPEN"
	DisputeInProgress DisputeStatus = "IN_PROGRESS"
	DisputeResolved   DisputeStatus = "RESOLVED"
)

// ResolutionType is how a dispute was settled.
type ResolutionType string

const (
	ResolutionFullRefund    ResolutionType = "FULL_REFUND"
	ResolutionPartialRefund ResolutionType = "PARTIAL_REFUND"
	ResolutionCredit        ResolutionType = "CREDIT"
	ResolutionNoRefund      ResolutionType = "NO_REFUND"
)

func (r ResolutionType) Valid() bool {
	switch r {
	case ResolutionFullRefund, ResolutionPartialRefund, ResolutionCredit, ResolutionNoRefund:
		return true
	}
	return false
}

// Dispute is a complaint raised against a booking.
type Dispute struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	BookingID         uuid.UUID       `json:"bookingId" db:"booking_id"`
	Status            DisputeStatus   `json:"status" db:"status"`
	Category          string          `json:"category" db:"category"`
	Description       string          `json:"description" db:"description"`
	ReportedBy        string          `json:"reportedBy" db:"reported_by"`
	ReportedAt        time.Time       `json:"reportedAt" db:"reported_at"`
	ResolutionType    *ResolutionType `json:"resolutionType,omitempty" db:"resolution_type"`
	ResolutionAmount  *float64        `json:"resolutionAmount,omitempty" db:"resolution_amount"`
	ResolutionDetails *string         `json:"resolutionDetails,omitempty" db:"resolution_details"`
	ResolvedAt        *time.Time      `json:"resolvedAt,omitempty" db:"resolved_at"`
	ResolvedBy        *string         `json:"resolvedBy,omitempty" db:"resolved_by"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// DisputeMessage is one entry of a dispute thread.
type DisputeMessage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DisputeID  uuid.UUID `json:"-" db:"dispute_id"`
	Sender     string    `json:"sender" db:"sender"`
	SenderName string    `json:"senderName" db:"sender_name"`
	Content    string    `json:"content" db:"content"`
	Timestamp  time.Time `json:"timestamp" db:"created_at"`
}

// DisputeThread is a dispute with its messages, oldest first.
type DisputeThread struct {
	Dispute
	Messages []DisputeMessage `json:"messages"`
}

// Detail is the booking-by-reference view used by dispute resolution.
type Detail struct {
	Booking
	Dispute *DisputeThread `json:"dispute"`
}
