package calendar

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/bookings"
	"rental-portal/admin-portal-backend/internal/verification"
)

const (
	MsgPropertyNotFound = "Property not found"
	MsgAccessDenied     = "Access denied"
	MsgEventNotFound    = "Calendar event not found"
	MsgInvalidDate      = "Dates must be formatted as YYYY-MM-DD"
	MsgDateOrder        = "End date must be on or after start date"
	MsgDatesRequired    = "Start date and end date are required"
	MsgBookedDates      = "Selected dates overlap an existing booking"
)

// holidayWindow is how far ahead of the calendar start holidays are listed.
const holidayWindow = 12 * 30 * 24 * time.Hour

// PropertyLookup finds a property and its manager.
type PropertyLookup interface {
	GetProperty(ctx context.Context, id int64) (*verification.Property, error)
}

// BookingSource reads the bookings that hold a property's dates.
type BookingSource interface {
	ListByProperty(ctx context.Context, propertyID int64, from time.Time) ([]bookings.Booking, error)
	FindOverlap(ctx context.Context, propertyID int64, start, end time.Time) (*bookings.Booking, error)
}

type Service struct {
	repo       Repository
	properties PropertyLookup
	bookings   BookingSource
	holidays   *cal.BusinessCalendar
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(repo Repository, properties PropertyLookup, bookingSource BookingSource, logger *zap.Logger) *Service {
	holidays := cal.NewBusinessCalendar()
	holidays.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)

	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Service{
		repo:       repo,
		properties: properties,
		bookings:   bookingSource,
		holidays:   holidays,
		validate:   validate,
		logger:     logger,
		now:        time.Now,
	}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns a UTC instant.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	if strings.TrimSpace(rawStart) == "" || strings.TrimSpace(rawEnd) == "" {
		return time.Time{}, time.Time{}, apperrors.BadRequest(MsgDatesRequired)
	}
	start, err := ParseDate(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.BadRequest(MsgInvalidDate)
	}
	end, err := ParseDate(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.BadRequest(MsgInvalidDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.BadRequest(MsgDateOrder)
	}
	return start, end, nil
}

func parsePropertyID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NotFound(MsgPropertyNotFound)
	}
	return id, nil
}

// validationError turns the first failed rule into a client message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.BadRequest("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.BadRequest(fe.Field() + " is required")
	case "gt":
		return apperrors.BadRequest(fe.Field() + " must be greater than " + fe.Param())
	case "max":
		return apperrors.BadRequest(fe.Field() + " must be at most " + fe.Param() + " characters")
	}
	return apperrors.BadRequest(fe.Field() + " is invalid")
}

// authorize loads the property and checks the caller manages it or is an admin.
func (s *Service) authorize(ctx context.Context, user *auth.User, rawID string) (*verification.Property, error) {
	id, err := parsePropertyID(rawID)
	if err != nil {
		return nil, err
	}
	p, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound(MsgPropertyNotFound)
	}
	if !user.OwnsProperty(p.Manager.ID) {
		s.logger.Warn("Calendar access denied",
			zap.String("user_id", user.ID.String()),
			zap.Int64("property_id", p.ID))
		return nil, apperrors.Forbidden(MsgAccessDenied)
	}
	return p, nil
}

// Get returns bookings, blocked ranges, special pricing and public holidays
// for a property, starting at from (default: first day of last month).
func (s *Service) Get(ctx context.Context, user *auth.User, rawID, rawFrom string) (*Calendar, error) {
	p, err := s.authorize(ctx, user, rawID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	if rawFrom != "" {
		if from, err = ParseDate(rawFrom); err != nil {
			return nil, apperrors.BadRequest(MsgInvalidDate)
		}
	}

	held, err := s.bookings.ListByProperty(ctx, p.ID, from)
	if err != nil {
		return nil, err
	}
	blocked, err := s.repo.ListBlocked(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.repo.ListPricing(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	out := &Calendar{
		Bookings:       held,
		BlockedDates:   blocked,
		SpecialPricing: pricing,
		Holidays:       s.Holidays(from, from.Add(holidayWindow)),
	}
	if out.Bookings == nil {
		out.Bookings = []bookings.Booking{}
	}
	if out.BlockedDates == nil {
		out.BlockedDates = []BlockedDate{}
	}
	if out.SpecialPricing == nil {
		out.SpecialPricing = []SpecialPrice{}
	}
	return out, nil
}

// Holidays lists US federal holidays (actual or observed) in [from, to].
func (s *Service) Holidays(from, to time.Time) []Holiday {
	out := []Holiday{}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(to) {
		actual, observed, h := s.holidays.IsHoliday(day)
		if (actual || observed) && h != nil {
			out = append(out, Holiday{Date: day, Name: h.Name})
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// BlockDates closes a range for bookings. Ranges holding a booking are refused.
func (s *Service) BlockDates(ctx context.Context, user *auth.User, rawID string, req BlockRequest) (*BlockedDate, error) {
	p, err := s.authorize(ctx, user, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.FindOverlap(ctx, p.ID, start, end)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict(MsgBookedDates)
	}

	b := &BlockedDate{
		ID:         uuid.New(),
		PropertyID: p.ID,
		StartDate:  start,
		EndDate:    end,
		Reason:     strings.TrimSpace(req.Reason),
		Note:       strings.TrimSpace(req.Note),
		CreatedBy:  user.ID.String(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateBlocked(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("Dates blocked",
		zap.String("user_id", user.ID.String()),
		zap.Int64("property_id", p.ID),
		zap.Time("start", start),
		zap.Time("end", end))
	return b, nil
}

// SetSpecialPricing records a nightly price override for a range.
func (s *Service) SetSpecialPricing(ctx context.Context, user *auth.User, rawID string, req PricingRequest) (*SpecialPrice, error) {
	p, err := s.authorize(ctx, user, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	sp := &SpecialPrice{
		ID:             uuid.New(),
		PropertyID:     p.ID,
		StartDate:      start,
		EndDate:        end,
		Price:          req.Price,
		IsSpecialOffer: req.IsSpecialOffer,
		CreatedBy:      user.ID.String(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreatePricing(ctx, sp); err != nil {
		return nil, err
	}
	s.logger.Info("Special pricing set",
		zap.String("user_id", user.ID.String()),
		zap.Int64("property_id", p.ID),
		zap.Float64("price", req.Price))
	return sp, nil
}

func (s *Service) RemoveBlocked(ctx context.Context, user *auth.User, rawID, rawEventID string) error {
	return s.remove(ctx, user, rawID, rawEventID, s.repo.DeleteBlocked)
}

func (s *Service) RemovePricing(ctx context.Context, user *auth.User, rawID, rawEventID string) error {
	return s.remove(ctx, user, rawID, rawEventID, s.repo.DeletePricing)
}

func (s *Service) remove(ctx context.Context, user *auth.User, rawID, rawEventID string,
	del func(context.Context, int64, uuid.UUID) (bool, error)) error {
	p, err := s.authorize(ctx, user, rawID)
	if err != nil {
		return err
	}
	eventID, err := uuid.Parse(rawEventID)
	if err != nil {
		return apperrors.NotFound(MsgEventNotFound)
	}
	found, err := del(ctx, p.ID, eventID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound(MsgEventNotFound)
	}
	return nil
}

// CheckAvailability reports whether [start, end] is free. Both bookings and
// blocked ranges are compared inclusively.
func (s *Service) CheckAvailability(ctx context.Context, rawID, rawStart, rawEnd string) (*Availability, error) {
	id, err := parsePropertyID(rawID)
	if err != nil {
		return nil, err
	}
	start, end, err := parseRange(rawStart, rawEnd)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.FindOverlap(ctx, id, start, end)
	if err != nil {
		return nil, err
	}
	if booking != nil {
		s.logger.Info("Property not available for requested dates",
			zap.Int64("property_id", id),
			zap.String("booking_id", booking.ID.String()))
		return &Availability{ExistingBooking: &DateRange{StartDate: booking.StartDate, EndDate: booking.EndDate}}, nil
	}

	blocked, err := s.repo.FindBlocked(ctx, id, start, end)
	if err != nil {
		return nil, err
	}
	if blocked != nil {
		return &Availability{BlockedDate: &DateRange{StartDate: blocked.StartDate, EndDate: blocked.EndDate}}, nil
	}
	return &Availability{Available: true}, nil
}

// BookedDates lists the ranges held by bookings that have not yet ended.
func (s *Service) BookedDates(ctx context.Context, rawID string) ([]DateRange, error) {
	id, err := parsePropertyID(rawID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	held, err := s.bookings.ListByProperty(ctx, id, today)
	if err != nil {
		return nil, err
	}
	out := make([]DateRange, 0, len(held))
	for _, b := range held {
		out = append(out, DateRange{StartDate: b.StartDate, EndDate: b.EndDate})
	}
	return out, nil
}
