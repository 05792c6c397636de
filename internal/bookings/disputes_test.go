package bookings

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
)

func sampleDispute(b *Booking, status DisputeStatus) *Dispute {
	return &Dispute{
		ID:          uuid.New(),
		BookingID:   b.ID,
		Status:      status,
		Category:    "CLEANLINESS",
		Description: "Dirty linen",
		ReportedBy:  b.Customer.ID,
		ReportedAt:  fixedNow.AddDate(0, 0, -2),
	}
}

func TestGetByReference(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	b := sampleBooking(StatusCompleted)
	d := sampleDispute(b, DisputeOpen)

	repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
	repo.On("GetDispute", mock.Anything, b.ID).Return(d, nil)
	repo.On("ListDisputeMessages", mock.Anything, d.ID).Return(nil, nil)

	detail, err := service.GetByReference(context.Background(), " BK-1001 ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, detail.ID)
	require.NotNil(t, detail.Dispute)
	assert.Equal(t, DisputeOpen, detail.Dispute.Status)
	assert.NotNil(t, detail.Dispute.Messages)

	repo.On("GetByReference", mock.Anything, "BK-404").Return(nil, nil)
	_, err = service.GetByReference(context.Background(), "BK-404")
	assert.EqualError(t, err, MsgBookingNotFound)
}

func TestGetByReferenceWithoutDispute(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	b := sampleBooking(StatusConfirmed)

	repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
	repo.On("GetDispute", mock.Anything, b.ID).Return(nil, nil)

	detail, err := service.GetByReference(context.Background(), "BK-1001")
	require.NoError(t, err)
	assert.Nil(t, detail.Dispute)
}

func TestAddDisputeMessage(t *testing.T) {
	repo := new(MockRepository)
	service, notifier := newTestService(repo, Options{})
	b := sampleBooking(StatusCompleted)
	d := sampleDispute(b, DisputeInProgress)

	repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
	repo.On("GetDispute", mock.Anything, b.ID).Return(d, nil)
	repo.On("AddDisputeMessage", mock.Anything, mock.AnythingOfType("*bookings.DisputeMessage")).Return(nil)

	msg, err := service.AddDisputeMessage(context.Background(), admin, "BK-1001", " We are looking into it ")
	require.NoError(t, err)
	assert.Equal(t, "admin", msg.Sender)
	assert.Equal(t, "Grace Hopper", msg.SenderName)
	assert.Equal(t, "We are looking into it", msg.Content)
	assert.Equal(t, d.ID, msg.DisputeID)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.Equal(t, []string{guest.ID.String()}, notifier.userIDs())

	anonymous := &auth.User{ID: "a-2", Role: auth.RoleAdmin}
	msg, err = service.AddDisputeMessage(context.Background(), anonymous, "BK-1001", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Admin Support", msg.SenderName)

	_, err = service.AddDisputeMessage(context.Background(), admin, "BK-1001", "  ")
	assert.EqualError(t, err, MsgMessageRequired)
}

func TestAddDisputeMessageErrors(t *testing.T) {
	t.Run("no dispute", func(t *testing.T) {
		repo := new(MockRepository)
		service, _ := newTestService(repo, Options{})
		b := sampleBooking(StatusCompleted)
		repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
		repo.On("GetDispute", mock.Anything, b.ID).Return(nil, nil)

		_, err := service.AddDisputeMessage(context.Background(), admin, "BK-1001", "Hi")
		assert.EqualError(t, err, MsgDisputeNotFound)
		assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
	})

	t.Run("resolved dispute", func(t *testing.T) {
		repo := new(MockRepository)
		service, _ := newTestService(repo, Options{})
		b := sampleBooking(StatusCompleted)
		repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
		repo.On("GetDispute", mock.Anything, b.ID).Return(sampleDispute(b, DisputeResolved), nil)

		_, err := service.AddDisputeMessage(context.Background(), admin, "BK-1001", "Hi")
		assert.EqualError(t, err, MsgDisputeResolved)
	})
}

func TestUpdateDisputeStatus(t *testing.T) {
	repo := new(MockRepository)
	service, notifier := newTestService(repo, Options{})
	b := sampleBooking(StatusCompleted)
	d := sampleDispute(b, DisputeOpen)

	repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
	repo.On("GetDispute", mock.Anything, b.ID).Return(d, nil)
	repo.On("UpdateDispute", mock.Anything, d).Return(nil)
	repo.On("ListDisputeMessages", mock.Anything, d.ID).Return([]DisputeMessage{{Content: "first"}}, nil)

	thread, err := service.UpdateDisputeStatus(context.Background(), admin, "BK-1001", DisputeInProgress)
	require.NoError(t, err)
	assert.Equal(t, DisputeInProgress, thread.Status)
	assert.Len(t, thread.Messages, 1)
	assert.Nil(t, thread.ResolvedAt)

	thread, err = service.UpdateDisputeStatus(context.Background(), admin, "BK-1001", DisputeResolved)
	require.NoError(t, err)
	require.NotNil(t, thread.ResolvedAt)
	assert.Equal(t, admin.ID.String(), *thread.ResolvedBy)
	assert.Len(t, notifier.requests, 2)

	_, err = service.UpdateDisputeStatus(context.Background(), admin, "BK-1001", DisputeOpen)
	assert.EqualError(t, err, "Cannot change dispute status from RESOLVED to OPEN")

	_, err = service.UpdateDisputeStatus(context.Background(), admin, "BK-1001", DisputeStatus("CLOSED"))
	assert.EqualError(t, err, MsgInvalidDisputeStatus)
	repo.AssertNumberOfCalls(t, "UpdateDispute", 2)
}

func TestResolveDispute(t *testing.T) {
	tests := []struct {
		name        string
		req         ResolveRequest
		wantAmount  float64
		wantPayment PaymentStatus
	}{
		{"full refund uses the booking total", ResolveRequest{Type: ResolutionFullRefund, Amount: 1, Details: "Sorry"}, 350, PaymentRefunded},
		{"partial refund", ResolveRequest{Type: ResolutionPartialRefund, Amount: 100.5, Details: "Half a day lost"}, 100.5, PaymentPartiallyRefunded},
		{"credit leaves payment alone", ResolveRequest{Type: ResolutionCredit, Amount: 50, Details: "Voucher"}, 50, PaymentPaid},
		{"no refund", ResolveRequest{Type: ResolutionNoRefund, Amount: 80, Details: "Claim unfounded"}, 0, PaymentPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service, notifier := newTestService(repo, Options{})
			b := sampleBooking(StatusCompleted)
			b.PaymentStatus = PaymentPaid
			d := sampleDispute(b, DisputeInProgress)

			repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
			repo.On("GetDispute", mock.Anything, b.ID).Return(d, nil)
			repo.On("UpdateDispute", mock.Anything, d).Return(nil)
			repo.On("Update", mock.Anything, b).Return(nil).Maybe()
			repo.On("ListDisputeMessages", mock.Anything, d.ID).Return(nil, nil)

			detail, err := service.ResolveDispute(context.Background(), admin, "BK-1001", tt.req)
			require.NoError(t, err)
			assert.Equal(t, DisputeResolved, detail.Dispute.Status)
			assert.Equal(t, tt.wantAmount, *detail.Dispute.ResolutionAmount)
			assert.Equal(t, tt.req.Type, *detail.Dispute.ResolutionType)
			assert.Equal(t, tt.wantPayment, detail.PaymentStatus)
			assert.Len(t, notifier.requests, 1)
		})
	}
}

func TestResolveDisputeValidation(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo, Options{})
	b := sampleBooking(StatusCompleted)
	repo.On("GetByReference", mock.Anything, "BK-1001").Return(b, nil)
	repo.On("GetDispute", mock.Anything, b.ID).Return(sampleDispute(b, DisputeOpen), nil)

	_, err := service.ResolveDispute(context.Background(), admin, "BK-1001", ResolveRequest{Type: ResolutionCredit})
	assert.EqualError(t, err, MsgResolutionRequired)

	_, err = service.ResolveDispute(context.Background(), admin, "BK-1001", ResolveRequest{Type: "APOLOGY", Details: "x"})
	assert.EqualError(t, err, MsgInvalidResolution)

	_, err = service.ResolveDispute(context.Background(), admin, "BK-1001", ResolveRequest{Type: ResolutionPartialRefund, Amount: 351, Details: "x"})
	assert.EqualError(t, err, MsgResolutionAmount)

	_, err = service.ResolveDispute(context.Background(), admin, "BK-1001", ResolveRequest{Type: ResolutionCredit, Amount: -1, Details: "x"})
	assert.EqualError(t, err, MsgResolutionAmount)

	repo.AssertNotCalled(t, "UpdateDispute", mock.Anything, mock.Anything)
}
