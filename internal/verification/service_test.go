package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/metrics"
	"rental-portal/admin-portal-backend/pkg/jsonid"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListProperties(ctx context.Context) ([]*Property, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Property), args.Error(1)
}

func (m *MockRepository) GetProperty(ctx context.Context, id int64) (*Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Property), args.Error(1)
}

func (m *MockRepository) CreateProperty(ctx context.Context, p *Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) UpdateProperty(ctx context.Context, p *Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) DeleteProperty(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) AppendEvent(ctx context.Context, e *Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRepository) ListEvents(ctx context.Context, propertyID int64) ([]Event, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).([]Event), args.Error(1)
}

var fixedNow = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestService(repo Repository, enforce bool) *Service {
	return NewService(repo, zap.NewNop(), Options{
		EnforceChecklist: enforce,
		Now:              func() time.Time { return fixedNow },
	})
}

func TestListPropertiesStatusFilter(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	for _, status := range []Status{StatusPending, StatusInReview, StatusVerified, StatusRejected, StatusNeedsRevision} {
		result, err := service.ListProperties(ctx, ListFilter{Page: 1, Limit: 10, Status: status})
		require.NoError(t, err)
		for _, p := range result.Properties {
			assert.Equal(t, status, p.VerificationStatus)
		}
		assert.Equal(t, len(result.Properties), result.Pagination.Total)
	}

	result, err := service.ListProperties(ctx, ListFilter{Page: 1, Limit: 10, Status: StatusVerified})
	require.NoError(t, err)
	require.Len(t, result.Properties, 1)
	assert.Equal(t, int64(4), result.Properties[0].ID)
	assert.Equal(t, 1, result.Pagination.Total)
	assert.Equal(t, 79, result.Properties[0].Progress)
}

func TestListPropertiesSearch(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	tests := []struct {
		search string
		want   []int64
	}{
		{"beach", []int64{2}},
		{"MIAMI", []int64{2}},
		{"sarah wilson", []int64{4}},
		{"john", []int64{1, 3}},
		{"apartment", []int64{1}},
		{"nowhere", nil},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			result, err := service.ListProperties(ctx, ListFilter{Page: 1, Limit: 10, Search: tt.search, Status: StatusAll})
			require.NoError(t, err)

			var ids []int64
			for _, p := range result.Properties {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListPropertiesStatsIgnoreFilters(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)

	result, err := service.ListProperties(context.Background(), ListFilter{Page: 1, Limit: 10, Search: "beach", Status: StatusRejected})
	require.NoError(t, err)

	assert.Empty(t, result.Properties)
	assert.Equal(t, Stats{Total: 4, Pending: 1, InReview: 1, Verified: 1, NeedsRevision: 1}, result.Stats)

	s := result.Stats
	assert.Equal(t, s.Total, s.Pending+s.InReview+s.Verified+s.Rejected+s.NeedsRevision)
}

func TestListPropertiesPagination(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	result, err := service.ListProperties(ctx, ListFilter{Page: 2, Limit: 3, Status: StatusAll})
	require.NoError(t, err)
	assert.Len(t, result.Properties, 1)
	assert.Equal(t, 4, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.TotalPages)

	result, err = service.ListProperties(ctx, ListFilter{Page: 9, Limit: 3, Status: StatusAll})
	require.NoError(t, err)
	assert.NotNil(t, result.Properties)
	assert.Empty(t, result.Properties)
}

func TestListPropertiesRepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("ListProperties", mock.Anything).Return(nil, errors.New("db down"))

	_, err := newTestService(mockRepo, false).ListProperties(context.Background(), ListFilter{Page: 1, Limit: 10})
	assert.Error(t, err)
	mockRepo.AssertExpectations(t)
}

func TestTransitionReject(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)

	p, err := service.Transition(context.Background(), "admin-1", TransitionRequest{
		PropertyID: "1",
		Action:     ActionReject,
		Reason:     "Poor photos",
		Notes:      "Retake the kitchen",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, p.VerificationStatus)
	assert.Equal(t, "Poor photos", p.RejectionReason)
	assert.Equal(t, "Retake the kitchen", p.RejectionNotes)
	assert.Equal(t, "admin-1", p.RejectedBy)
	require.NotNil(t, p.RejectedAt)
	assert.Equal(t, fixedNow, *p.RejectedAt)
}

func TestTransitionVerifyIgnoresCompletenessByDefault(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)

	p, err := service.Transition(context.Background(), "admin-1", TransitionRequest{PropertyID: "1", Action: ActionVerify})
	require.NoError(t, err)

	assert.Equal(t, StatusVerified, p.VerificationStatus)
	assert.Equal(t, "admin-1", p.VerifiedBy)
	assert.NotNil(t, p.VerifiedAt)
	assert.Equal(t, 0, Progress(p.VerificationChecks))
}

func TestTransitionVerifyEnforced(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), true)
	ctx := context.Background()

	_, err := service.Transition(ctx, "admin-1", TransitionRequest{PropertyID: "1", Action: ActionVerify})
	assert.Equal(t, 400, apperrors.StatusOf(err))

	p, err := service.Transition(ctx, "admin-1", TransitionRequest{
		PropertyID:         "1",
		Action:             ActionVerify,
		VerificationChecks: allChecks(true),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, p.VerificationStatus)
	assert.True(t, CanVerify(p.VerificationChecks))
}

func TestTransitionKeepsEarlierAuditStamps(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	_, err := service.Transition(ctx, "admin-1", TransitionRequest{PropertyID: "1", Action: ActionStartReview})
	require.NoError(t, err)
	_, err = service.Transition(ctx, "admin-2", TransitionRequest{PropertyID: "1", Action: ActionRequestRevision, Notes: "Add permit"})
	require.NoError(t, err)
	p, err := service.Transition(ctx, "admin-3", TransitionRequest{
		PropertyID:         "1",
		Action:             ActionUpdateChecks,
		VerificationChecks: Checks{"legal_rental_permit": true},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsRevision, p.VerificationStatus)
	assert.Equal(t, "admin-1", p.ReviewStartedBy)
	assert.Equal(t, "admin-2", p.RevisionRequestedBy)
	assert.Equal(t, "Add permit", p.RevisionNotes)
	assert.Equal(t, "admin-3", p.LastUpdatedBy)
	assert.Equal(t, Checks{"legal_rental_permit": true}, p.VerificationChecks)

	history, err := service.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ActionStartReview, history[0].Action)
	assert.Equal(t, StatusPending, history[0].FromStatus)
	assert.Equal(t, StatusInReview, history[0].ToStatus)
	assert.Equal(t, ActionUpdateChecks, history[2].Action)
}

func TestTransitionUpdateChecksWithoutBodyKeepsChecks(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	before, err := service.GetProperty(ctx, 2)
	require.NoError(t, err)
	require.Len(t, before.VerificationChecks, 5)

	p, err := service.Transition(ctx, "admin-9", TransitionRequest{PropertyID: "2", Action: ActionUpdateChecks})
	require.NoError(t, err)

	assert.Equal(t, before.VerificationChecks, p.VerificationChecks)
	assert.Equal(t, StatusInReview, p.VerificationStatus)
	assert.Equal(t, "admin-9", p.LastUpdatedBy)
	require.NotNil(t, p.LastUpdatedAt)
	assert.Equal(t, fixedNow, *p.LastUpdatedAt)

	stored, err := service.GetProperty(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, before.VerificationChecks, stored.VerificationChecks)
}

func TestTransitionAcceptsFreeFormCheckKeys(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)

	p, err := service.Transition(context.Background(), "admin-1", TransitionRequest{
		PropertyID:         "1",
		Action:             ActionUpdateChecks,
		VerificationChecks: Checks{"custom_note": true},
	})
	require.NoError(t, err)
	assert.Equal(t, Checks{"custom_note": true}, p.VerificationChecks)
}

func TestTransitionValidation(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	tests := []struct {
		name       string
		req        TransitionRequest
		wantStatus int
		wantMsg    string
	}{
		{"missing id", TransitionRequest{Action: ActionVerify}, 400, MsgIDAndActionRequired},
		{"missing action", TransitionRequest{PropertyID: "1"}, 400, MsgIDAndActionRequired},
		{"unknown property", TransitionRequest{PropertyID: "999", Action: ActionVerify}, 404, MsgPropertyNotFound},
		{"non numeric id", TransitionRequest{PropertyID: "abc", Action: ActionVerify}, 404, MsgPropertyNotFound},
		{"invalid action", TransitionRequest{PropertyID: "1", Action: "publish"}, 400, MsgInvalidAction},
		{"invalid action with checks", TransitionRequest{PropertyID: "1", Action: "bogus", VerificationChecks: Checks{"x": true}}, 400, MsgInvalidAction},
		{"zero id", TransitionRequest{PropertyID: "0", Action: ActionVerify}, 400, MsgIDAndActionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Transition(ctx, "admin-1", tt.req)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}

	// nothing was written
	p, err := service.GetProperty(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.VerificationStatus)
}

func TestTransitionUpdateFails(t *testing.T) {
	mockRepo := new(MockRepository)
	property := SampleProperties()[0]
	mockRepo.On("GetProperty", mock.Anything, int64(1)).Return(property, nil)
	mockRepo.On("UpdateProperty", mock.Anything, mock.AnythingOfType("*verification.Property")).Return(errors.New("write failed"))

	counter := metrics.VerificationTransitions.WithLabelValues(string(ActionStartReview))
	before := testutil.ToFloat64(counter)

	_, err := newTestService(mockRepo, false).Transition(context.Background(), "admin-1", TransitionRequest{PropertyID: "1", Action: ActionStartReview})
	assert.Error(t, err)
	assert.Equal(t, 500, apperrors.StatusOf(err))
	mockRepo.AssertNotCalled(t, "AppendEvent", mock.Anything, mock.Anything)
	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestTransitionCountsSuccessfulWrites(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	counter := metrics.VerificationTransitions.WithLabelValues(string(ActionRequestRevision))
	before := testutil.ToFloat64(counter)

	_, err := service.Transition(context.Background(), "admin-1", TransitionRequest{PropertyID: "1", Action: ActionRequestRevision})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestTransitionEventFailureIsNotFatal(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("GetProperty", mock.Anything, int64(1)).Return(SampleProperties()[0], nil)
	mockRepo.On("UpdateProperty", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("AppendEvent", mock.Anything, mock.AnythingOfType("*verification.Event")).Return(errors.New("log table missing"))

	changed := false
	service := newTestService(mockRepo, false)
	service.OnChange(func() { changed = true })

	p, err := service.Transition(context.Background(), "admin-1", TransitionRequest{PropertyID: "1", Action: ActionStartReview})
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, p.VerificationStatus)
	assert.True(t, changed)
	mockRepo.AssertExpectations(t)
}

func TestBulkTransitionPartialSuccess(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)

	result, err := service.BulkTransition(context.Background(), "admin-1", BulkRequest{
		PropertyIDs: []jsonid.ID{"1", "999"},
		Action:      ActionBulkVerify,
		Notes:       "batch",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, []string{"Property 999 not found"}, result.Errors)
	require.Len(t, result.UpdatedProperties, 1)
	assert.Equal(t, StatusVerified, result.UpdatedProperties[0].VerificationStatus)
	assert.Equal(t, "batch", result.UpdatedProperties[0].VerificationNotes)
}

func TestBulkTransitionActions(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	result, err := service.BulkTransition(ctx, "admin-1", BulkRequest{PropertyIDs: []jsonid.ID{"1", "2"}, Action: ActionBulkReject, Notes: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Empty(t, result.Errors)
	for _, p := range result.UpdatedProperties {
		assert.Equal(t, StatusRejected, p.VerificationStatus)
		assert.Equal(t, "duplicate", p.RejectionNotes)
		assert.Equal(t, "admin-1", p.RejectedBy)
	}

	result, err = service.BulkTransition(ctx, "admin-1", BulkRequest{PropertyIDs: []jsonid.ID{"3"}, Action: ActionBulkStartReview})
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, result.UpdatedProperties[0].VerificationStatus)
	assert.Equal(t, "admin-1", result.UpdatedProperties[0].ReviewStartedBy)

	result, err = service.BulkTransition(ctx, "admin-1", BulkRequest{PropertyIDs: []jsonid.ID{"3", "42"}, Action: "bulk_publish"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.UpdatedCount)
	assert.Equal(t, []string{"Invalid action for property 3", "Property 42 not found"}, result.Errors)
}

func TestBulkTransitionEnforced(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), true)

	result, err := service.BulkTransition(context.Background(), "admin-1", BulkRequest{PropertyIDs: []jsonid.ID{"1", "4"}, Action: ActionBulkVerify})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, int64(4), result.UpdatedProperties[0].ID)
	assert.Equal(t, []string{"Property 1 has incomplete required checks"}, result.Errors)
}

func TestBulkTransitionValidation(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	_, err := service.BulkTransition(ctx, "admin-1", BulkRequest{Action: ActionBulkVerify})
	assert.EqualError(t, err, MsgIDsRequired)

	_, err = service.BulkTransition(ctx, "admin-1", BulkRequest{PropertyIDs: []jsonid.ID{"1"}})
	assert.EqualError(t, err, MsgActionRequired)
}

func TestGetPropertyDetail(t *testing.T) {
	service := newTestService(NewSeededMemoryRepository(), false)
	ctx := context.Background()

	detail, err := service.GetProperty(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 79, detail.Progress)
	assert.True(t, detail.CanVerify)
	assert.Empty(t, detail.MissingRequired)
	assert.Len(t, detail.Steps, 6)

	_, err = service.GetProperty(ctx, 77)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestMemoryRepositoryIsolation(t *testing.T) {
	repo := NewSeededMemoryRepository()
	ctx := context.Background()

	p, err := repo.GetProperty(ctx, 2)
	require.NoError(t, err)
	p.VerificationChecks["legal_insurance"] = true
	p.Name = "changed"

	again, err := repo.GetProperty(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Cozy Beach House", again.Name)
	assert.False(t, again.VerificationChecks["legal_insurance"])

	assert.ErrorIs(t, repo.UpdateProperty(ctx, &Property{ID: 100}), ErrPropertyNotFound)

	created := &Property{Name: "New Listing", VerificationStatus: StatusPending}
	require.NoError(t, repo.CreateProperty(ctx, created))
	assert.Equal(t, int64(5), created.ID)
}

func TestMemoryRepositoryCreateDefaultsAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created := &Property{Name: "Garden Flat"}
	require.NoError(t, repo.CreateProperty(ctx, created))
	assert.Equal(t, int64(1), created.ID)

	stored, err := repo.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.VerificationStatus)
	assert.Equal(t, ListingPending, stored.Status)
	assert.Equal(t, Checks{}, stored.VerificationChecks)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, stored.CreatedAt, stored.SubmittedAt)

	require.NoError(t, repo.AppendEvent(ctx, &Event{PropertyID: created.ID, Action: ActionStartReview}))
	require.NoError(t, repo.DeleteProperty(ctx, created.ID))
	assert.ErrorIs(t, repo.DeleteProperty(ctx, created.ID), ErrPropertyNotFound)

	gone, err := repo.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	events, err := repo.ListEvents(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTransitionPropertyDeletedMidway(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("GetProperty", mock.Anything, int64(1)).Return(SampleProperties()[0], nil)
	mockRepo.On("UpdateProperty", mock.Anything, mock.Anything).Return(ErrPropertyNotFound)

	_, err := newTestService(mockRepo, false).Transition(context.Background(), "admin-1", TransitionRequest{PropertyID: "1", Action: ActionStartReview})
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestSeed(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	n, err := Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
