package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/bookings"
	"rental-portal/admin-portal-backend/internal/users"
	"rental-portal/admin-portal-backend/internal/verification"
)

type MockSources struct {
	mock.Mock
}

type verificationSource struct{ *MockSources }
type userSource struct{ *MockSources }
type bookingSource struct{ *MockSources }

func (m verificationSource) Stats(ctx context.Context) (verification.Stats, error) {
	args := m.Called("verification")
	return args.Get(0).(verification.Stats), args.Error(1)
}

func (m userSource) Stats(ctx context.Context) (*users.Stats, error) {
	args := m.Called("users")
	s, _ := args.Get(0).(*users.Stats)
	return s, args.Error(1)
}

func (m bookingSource) Stats(ctx context.Context) (*bookings.Stats, error) {
	args := m.Called("bookings")
	s, _ := args.Get(0).(*bookings.Stats)
	return s, args.Error(1)
}

func newTestService(m *MockSources) *Service {
	cache := NewCache(time.Minute)
	return NewService(verificationSource{m}, userSource{m}, bookingSource{m}, cache, zap.NewNop())
}

func expectSources(m *MockSources) {
	m.On("Stats", "verification").Return(verification.Stats{Total: 4, Pending: 1}, nil)
	m.On("Stats", "users").Return(&users.Stats{Total: 48}, nil)
	m.On("Stats", "bookings").Return(&bookings.Stats{Total: 9, Revenue: 1200}, nil)
}

func TestOverviewInvalidatedMidComputeIsNotCached(t *testing.T) {
	m := new(MockSources)
	service := newTestService(m)
	defer service.cache.Close()

	m.On("Stats", "verification").Return(verification.Stats{Total: 4}, nil).
		Run(func(mock.Arguments) { service.Invalidate() }).Once()
	m.On("Stats", "verification").Return(verification.Stats{Total: 5}, nil)
	m.On("Stats", "users").Return(&users.Stats{Total: 48}, nil)
	m.On("Stats", "bookings").Return(&bookings.Stats{Total: 9}, nil)

	stale, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stale.Properties.Total)
	_, cached := service.cache.Get(overviewKey)
	assert.False(t, cached)

	fresh, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Properties.Total)
	_, cached = service.cache.Get(overviewKey)
	assert.True(t, cached)
}

func TestOverviewIsCached(t *testing.T) {
	m := new(MockSources)
	expectSources(m)
	service := newTestService(m)
	defer service.cache.Close()

	first, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Properties.Total)
	assert.Equal(t, int64(48), first.Users.Total)
	assert.Equal(t, 1200.0, first.Bookings.Revenue)

	second, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	m.AssertNumberOfCalls(t, "Stats", 3)

	service.Invalidate()
	_, err = service.Overview(context.Background())
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "Stats", 6)
}

func TestOverviewError(t *testing.T) {
	m := new(MockSources)
	m.On("Stats", "verification").Return(verification.Stats{}, nil)
	m.On("Stats", "users").Return(nil, errors.New("db down"))
	service := newTestService(m)
	defer service.cache.Close()

	_, err := service.Overview(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, service.cache.Size())
}

func TestRefreshReplacesCachedValue(t *testing.T) {
	m := new(MockSources)
	expectSources(m)
	service := newTestService(m)
	defer service.cache.Close()

	first, err := service.Overview(context.Background())
	require.NoError(t, err)
	require.NoError(t, service.Refresh(context.Background()))

	second, err := service.Overview(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := new(MockSources)
	expectSources(m)
	service := newTestService(m)
	defer service.cache.Close()

	router := gin.New()
	NewHandler(service, zap.NewNop()).RegisterRoutes(router.Group("/api/admin"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"properties"`)
	assert.Contains(t, w.Body.String(), `"revenue":1200`)
}
