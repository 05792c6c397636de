package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rental-portal/admin-portal-backend/internal/notifications"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]Booking, int64, error) {
	args := m.Called(ctx, f)
	bookings, _ := args.Get(0).([]Booking)
	return bookings, args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*Booking)
	return b, args.Error(1)
}

func (m *MockRepository) GetByReference(ctx context.Context, reference string) (*Booking, error) {
	args := m.Called(ctx, reference)
	b, _ := args.Get(0).(*Booking)
	return b, args.Error(1)
}

func (m *MockRepository) GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Booking, error) {
	args := m.Called(ctx, checkoutID)
	b, _ := args.Get(0).(*Booking)
	return b, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, b *Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) Update(ctx context.Context, b *Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Summary(ctx context.Context) ([]StatusSummary, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]StatusSummary)
	return rows, args.Error(1)
}

func (m *MockRepository) ListByCustomer(ctx context.Context, customerID string, f CustomerFilter) ([]Booking, error) {
	args := m.Called(ctx, customerID, f)
	bookings, _ := args.Get(0).([]Booking)
	return bookings, args.Error(1)
}

func (m *MockRepository) ListByProperty(ctx context.Context, propertyID int64, from time.Time) ([]Booking, error) {
	args := m.Called(ctx, propertyID, from)
	bookings, _ := args.Get(0).([]Booking)
	return bookings, args.Error(1)
}

func (m *MockRepository) FindOverlap(ctx context.Context, propertyID int64, start, end time.Time) (*Booking, error) {
	args := m.Called(ctx, propertyID, start, end)
	b, _ := args.Get(0).(*Booking)
	return b, args.Error(1)
}

func (m *MockRepository) GetDispute(ctx context.Context, bookingID uuid.UUID) (*Dispute, error) {
	args := m.Called(ctx, bookingID)
	d, _ := args.Get(0).(*Dispute)
	return d, args.Error(1)
}

func (m *MockRepository) CreateDispute(ctx context.Context, d *Dispute) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockRepository) UpdateDispute(ctx context.Context, d *Dispute) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockRepository) ListDisputeMessages(ctx context.Context, disputeID uuid.UUID) ([]DisputeMessage, error) {
	args := m.Called(ctx, disputeID)
	msgs, _ := args.Get(0).([]DisputeMessage)
	return msgs, args.Error(1)
}

func (m *MockRepository) AddDisputeMessage(ctx context.Context, msg *DisputeMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// recordingNotifier keeps every request it is given.
type recordingNotifier struct {
	requests []*notifications.Request
}

func (r *recordingNotifier) Notify(ctx context.Context, req *notifications.Request) {
	r.requests = append(r.requests, req)
}

func (r *recordingNotifier) userIDs() []string {
	out := make([]string, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.UserID
	}
	return out
}
