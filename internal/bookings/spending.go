package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/export"
	"rental-portal/admin-portal-backend/pkg/pdf"
)

const MsgCustomerOnly = "Access denied. Customer role required."

// recentTransactionCount is the size of the recent transactions list.
const recentTransactionCount = 10

// categoryShares splits spend for the breakdown chart, in percent.
var categoryShares = []struct {
	Category string
	Percent  float64
}{
	{"Accommodation", 85},
	{"Service Fees", 8},
	{"Cleaning Fees", 5},
	{"Taxes", 2},
}

type MonthlySpend struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

type CategorySpend struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type Transaction struct {
	ID           string    `json:"id"`
	PropertyName string    `json:"propertyName"`
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
	Status       Status    `json:"status"`
	BookingRef   string    `json:"bookingRef"`
	Nights       int       `json:"nights"`
	Location     string    `json:"location"`
}

// SpendingReport is the customer spending dashboard.
type SpendingReport struct {
	TotalSpent         float64         `json:"totalSpent"`
	ThisMonth          float64         `json:"thisMonth"`
	AvgPerBooking      float64         `json:"avgPerBooking"`
	TotalBookings      int             `json:"totalBookings"`
	MonthlySpending    []MonthlySpend  `json:"monthlySpending"`
	CategoryBreakdown  []CategorySpend `json:"categoryBreakdown"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

func requireCustomer(user *auth.User) error {
	if user == nil || user.Role != auth.RoleCustomer {
		return apperrors.Forbidden(MsgCustomerOnly)
	}
	return nil
}

func monthStart(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
}

// customerFilter parses status (all or a booking status) and period (all,
// thisMonth, lastMonth, thisYear).
func (s *Service) customerFilter(status, period string) CustomerFilter {
	var f CustomerFilter
	if status != "" && !strings.EqualFold(status, "all") {
		f.Status = Status(strings.ToUpper(status))
	}

	now := s.now().UTC()
	switch period {
	case "thisMonth":
		from := monthStart(now, 0)
		f.From = &from
	case "lastMonth":
		from := monthStart(now, -1)
		to := monthStart(now, 0).Add(-time.Nanosecond)
		f.From, f.To = &from, &to
	case "thisYear":
		from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		f.From = &from
	}
	return f
}

func paid(b *Booking) bool {
	return b.Status == StatusConfirmed || b.Status == StatusCompleted
}

// Spending summarises what the calling customer has spent. Only confirmed
// and completed bookings count towards totals.
func (s *Service) Spending(ctx context.Context, user *auth.User, status, period string) (*SpendingReport, error) {
	if err := requireCustomer(user); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListByCustomer(ctx, user.ID.String(), s.customerFilter(status, period))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	thisMonthStart := monthStart(now, 0)

	var total, thisMonth float64
	var paidCount int
	for i := range bookings {
		b := &bookings[i]
		if !paid(b) {
			continue
		}
		paidCount++
		total += b.TotalAmount
		if !b.CreatedAt.Before(thisMonthStart) {
			thisMonth += b.TotalAmount
		}
	}

	report := &SpendingReport{
		TotalSpent:         round2(total),
		ThisMonth:          round2(thisMonth),
		TotalBookings:      len(bookings),
		MonthlySpending:    make([]MonthlySpend, 0, 6),
		CategoryBreakdown:  make([]CategorySpend, 0, len(categoryShares)),
		RecentTransactions: []Transaction{},
	}
	if paidCount > 0 {
		report.AvgPerBooking = round2(total / float64(paidCount))
	}

	for i := 5; i >= 0; i-- {
		start, end := monthStart(now, -i), monthStart(now, -i+1)
		var amount float64
		for j := range bookings {
			b := &bookings[j]
			if paid(b) && !b.CreatedAt.Before(start) && b.CreatedAt.Before(end) {
				amount += b.TotalAmount
			}
		}
		report.MonthlySpending = append(report.MonthlySpending, MonthlySpend{
			Month:  start.Format("Jan"),
			Amount: round2(amount),
		})
	}

	for _, c := range categoryShares {
		report.CategoryBreakdown = append(report.CategoryBreakdown, CategorySpend{
			Category:   c.Category,
			Amount:     round2(total * c.Percent / 100),
			Percentage: c.Percent,
		})
	}

	for i := range bookings {
		if i == recentTransactionCount {
			break
		}
		b := &bookings[i]
		report.RecentTransactions = append(report.RecentTransactions, Transaction{
			ID:           b.ID.String(),
			PropertyName: b.PropertyName,
			Amount:       b.TotalAmount,
			Date:         b.CreatedAt,
			Status:       b.Status,
			BookingRef:   b.Reference,
			Nights:       NightsBetween(b.StartDate, b.EndDate),
			Location:     b.Location,
		})
	}
	return report, nil
}

// SpendingTable lists the customer's bookings for download.
func (s *Service) SpendingTable(ctx context.Context, user *auth.User, status, period string) (*export.Table, error) {
	if err := requireCustomer(user); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListByCustomer(ctx, user.ID.String(), s.customerFilter(status, period))
	if err != nil {
		return nil, err
	}

	table := &export.Table{
		Name: "Spending",
		Columns: []export.Column{
			{Key: "date", Title: "Date"},
			{Key: "reference", Title: "Booking Ref"},
			{Key: "property", Title: "Property"},
			{Key: "location", Title: "Location"},
			{Key: "nights", Title: "Nights"},
			{Key: "status", Title: "Status"},
			{Key: "amount", Title: "Amount"},
		},
	}
	for _, b := range bookings {
		table.Rows = append(table.Rows, map[string]interface{}{
			"date":      b.CreatedAt,
			"reference": b.Reference,
			"property":  b.PropertyName,
			"location":  b.Location,
			"nights":    NightsBetween(b.StartDate, b.EndDate),
			"status":    string(b.Status),
			"amount":    b.TotalAmount,
		})
	}
	return table, nil
}

// Receipt renders a PDF receipt for one of the customer's bookings.
func (s *Service) Receipt(ctx context.Context, user *auth.User, rawID string) ([]byte, string, error) {
	if err := requireCustomer(user); err != nil {
		return nil, "", err
	}
	b, err := s.loadOwned(ctx, user, rawID, MsgBookingNotFound)
	if err != nil {
		return nil, "", err
	}

	opts := pdf.DefaultOptions()
	opts.Title = "Booking Receipt"
	opts.Subtitle = "Reference " + b.Reference
	opts.Footer = "Thank you for booking with us"
	doc := pdf.NewGenerator(opts)

	doc.AddSection("Guest", []pdf.Field{
		{Label: "Name", Value: b.Customer.Name},
		{Label: "Email", Value: b.Customer.Email},
	})
	doc.AddSection("Stay", []pdf.Field{
		{Label: "Property", Value: b.PropertyName},
		{Label: "Location", Value: b.Location},
		{Label: "Check-in", Value: doc.FormatDate(b.StartDate)},
		{Label: "Check-out", Value: doc.FormatDate(b.EndDate)},
		{Label: "Nights", Value: fmt.Sprintf("%d", b.Nights)},
		{Label: "Guests", Value: fmt.Sprintf("%d", b.Guests)},
		{Label: "Status", Value: string(b.Status)},
		{Label: "Payment", Value: string(b.PaymentStatus)},
	})
	doc.AddAmounts(b.Currency, []pdf.LineItem{
		{Description: fmt.Sprintf("Accommodation (%d nights)", b.Nights), Amount: b.Subtotal},
		{Description: "Service fee", Amount: b.ServiceFee},
		{Description: "Taxes", Amount: b.Taxes},
	}, "Total", b.TotalAmount)
	doc.AddNote(fmt.Sprintf("Booked on %s. This receipt was generated on %s.",
		doc.FormatDate(b.CreatedAt), doc.FormatDate(s.now().UTC())))

	data, err := doc.Bytes()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("receipt-%s.pdf", b.Reference)

	if s.archive != nil {
		if err := s.archive.Put(ctx, "receipts/"+filename, "application/pdf", data); err != nil {
			s.logger.Warn("Failed to archive receipt", zap.Error(err), zap.String("reference", b.Reference))
		}
	}
	return data, filename, nil
}
