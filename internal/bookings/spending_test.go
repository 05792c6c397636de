package bookings

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-portal/admin-portal-backend/internal/apperrors"
)

func spendingBookings() []Booking {
	june := sampleBooking(StatusConfirmed)
	june.TotalAmount = 200
	june.CreatedAt = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	april := sampleBooking(StatusCompleted)
	april.TotalAmount = 100
	april.CreatedAt = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)

	pending := sampleBooking(StatusPending)
	pending.TotalAmount = 50
	pending.CreatedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	cancelled := sampleBooking(StatusCancelled)
	cancelled.TotalAmount = 80
	cancelled.CreatedAt = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	return []Booking{*june, *pending, *cancelled, *april}
}

func TestSpending(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	repo.On("ListByCustomer", mock.Anything, guest.ID.String(), CustomerFilter{}).Return(spendingBookings(), nil)

	report, err := service.Spending(context.Background(), guest, "all", "")
	require.NoError(t, err)

	assert.Equal(t, 300.0, report.TotalSpent)
	assert.Equal(t, 200.0, report.ThisMonth)
	assert.Equal(t, 150.0, report.AvgPerBooking)
	assert.Equal(t, 4, report.TotalBookings)

	assert.Equal(t, []MonthlySpend{
		{Month: "Jan", Amount: 0},
		{Month: "Feb", Amount: 0},
		{Month: "Mar", Amount: 0},
		{Month: "Apr", Amount: 100},
		{Month: "May", Amount: 0},
		{Month: "Jun", Amount: 200},
	}, report.MonthlySpending)

	require.Len(t, report.CategoryBreakdown, 4)
	assert.Equal(t, CategorySpend{Category: "Accommodation", Amount: 255, Percentage: 85}, report.CategoryBreakdown[0])
	assert.Equal(t, 6.0, report.CategoryBreakdown[3].Amount)

	require.Len(t, report.RecentTransactions, 4)
	assert.Equal(t, "BK-1001", report.RecentTransactions[0].BookingRef)
	assert.Equal(t, 3, report.RecentTransactions[0].Nights)
}

func TestSpendingEmpty(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	repo.On("ListByCustomer", mock.Anything, guest.ID.String(), mock.Anything).Return(nil, nil)

	report, err := service.Spending(context.Background(), guest, "", "")
	require.NoError(t, err)
	assert.Zero(t, report.AvgPerBooking)
	assert.Len(t, report.MonthlySpending, 6)
	assert.NotNil(t, report.RecentTransactions)
}

func TestSpendingRequiresCustomer(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})

	_, err := service.Spending(context.Background(), admin, "", "")
	assert.EqualError(t, err, MsgCustomerOnly)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))

	_, _, err = service.Receipt(context.Background(), admin, "x")
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))
}

func TestCustomerFilter(t *testing.T) {
	service, _ := newTestService(new(MockRepository), Options{})

	f := service.customerFilter("confirmed", "thisMonth")
	assert.Equal(t, StatusConfirmed, f.Status)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Nil(t, f.To)

	f = service.customerFilter("ALL", "lastMonth")
	assert.Empty(t, f.Status)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2025, 5, 31, 23, 59, 59, 999999999, time.UTC), *f.To)

	f = service.customerFilter("", "thisYear")
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *f.From)

	f = service.customerFilter("", "forever")
	assert.Nil(t, f.From)
}

func TestSpendingTable(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	repo.On("ListByCustomer", mock.Anything, guest.ID.String(), mock.Anything).Return(spendingBookings(), nil)

	table, err := service.SpendingTable(context.Background(), guest, "", "thisYear")
	require.NoError(t, err)
	assert.Equal(t, "Spending", table.Name)
	assert.Len(t, table.Columns, 7)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, 200.0, table.Rows[0]["amount"])
}

func TestReceipt(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	b := sampleBooking(StatusCompleted)
	repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

	data, filename, err := service.Receipt(context.Background(), guest, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "receipt-BK-1001.pdf", filename)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

type memoryArchive struct {
	objects map[string][]byte
	err     error
}

func (a *memoryArchive) Put(ctx context.Context, key, contentType string, data []byte) error {
	if a.err != nil {
		return a.err
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = data
	return nil
}

func (a *memoryArchive) Delete(ctx context.Context, key string) error {
	delete(a.objects, key)
	return nil
}

func (a *memoryArchive) PresignGet(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "https://archive.example.com/" + key, nil
}

func TestReceiptIsArchived(t *testing.T) {
	repo := new(MockRepository)
	archive := &memoryArchive{}
	service, _ := newTestService(repo, Options{Archive: archive})
	b := sampleBooking(StatusConfirmed)
	repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

	data, _, err := service.Receipt(context.Background(), guest, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, data, archive.objects["receipts/receipt-BK-1001.pdf"])
}

func TestReceiptArchiveFailureIsIgnored(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{Archive: &memoryArchive{err: errors.New("bucket missing")}})
	b := sampleBooking(StatusConfirmed)
	repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

	data, _, err := service.Receipt(context.Background(), guest, b.ID.String())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
