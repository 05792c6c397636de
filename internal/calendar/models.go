package calendar

import (
	"time"

	"github.com/google/uuid"

	"rental-portal/admin-portal-backend/internal/bookings"
)

// BlockedDate is a range a manager has closed for bookings.
type BlockedDate struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PropertyID int64     `json:"propertyId" db:"property_id"`
	StartDate  time.Time `json:"startDate" db:"start_date"`
	EndDate    time.Time `json:"endDate" db:"end_date"`
	Reason     string    `json:"reason" db:"reason"`
	Note       string    `json:"note,omitempty" db:"note"`
	CreatedBy  string    `json:"createdBy" db:"created_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// SpecialPrice overrides the nightly price for a range.
type SpecialPrice struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PropertyID     int64     `json:"propertyId" db:"property_id"`
	StartDate      time.Time `json:"startDate" db:"start_date"`
	EndDate        time.Time `json:"endDate" db:"end_date"`
	Price          float64   `json:"price" db:"price"`
	IsSpecialOffer bool      `json:"isSpecialOffer" db:"is_special_offer"`
	CreatedBy      string    `json:"createdBy" db:"created_by"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Calendar is everything the manager calendar view draws for one property.
type Calendar struct {
	Bookings       []bookings.Booking `json:"bookings"`
	BlockedDates   []BlockedDate      `json:"blockedDates"`
	SpecialPricing []SpecialPrice     `json:"specialPricing"`
	Holidays       []Holiday          `json:"holidays"`
}

type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Availability answers a public availability check.
type Availability struct {
	Available       bool       `json:"available"`
	ExistingBooking *DateRange `json:"existingBooking,omitempty"`
	BlockedDate     *DateRange `json:"blockedDate,omitempty"`
}

// BlockRequest is the body of POST .../block-dates.
type BlockRequest struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=200"`
	Note      string `json:"note" validate:"max=1000"`
}

// PricingRequest is the body of POST .../special-pricing.
type PricingRequest struct {
	StartDate      string  `json:"startDate" validate:"required"`
	EndDate        string  `json:"endDate" validate:"required"`
	Price          float64 `json:"price" validate:"gt=0"`
	IsSpecialOffer bool    `json:"isSpecialOffer"`
}
