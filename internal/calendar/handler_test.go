package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/auth"
)

const managerCookie = `{"user":{"id":"m-1","role":"PROPERTY_MANAGER"},"isAuthenticated":true}`

func setupRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	handler := NewHandler(f.service, logger)
	router := gin.New()
	handler.RegisterDashboardRoutes(router.Group("/api/dashboard", auth.RequireRoles(auth.NewGuard("auth", ""), logger)))
	handler.RegisterPublicRoutes(router.Group("/api"))
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.AddCookie(&http.Cookie{Name: "auth", Value: url.PathEscape(managerCookie)})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerBlockDates(t *testing.T) {
	f := newFixture()
	f.bookings.On("FindOverlap", mock.Anything, int64(7), julyFirst, julyFifth).Return(nil, nil)
	f.repo.On("CreateBlocked", mock.Anything, mock.Anything).Return(nil)
	router := setupRouter(f)

	w := doRequest(router, http.MethodPost, "/api/dashboard/properties/7/block-dates",
		map[string]string{"startDate": "2025-07-01", "endDate": "2025-07-05", "reason": "Repairs"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"Repairs"`)

	w = doRequest(router, http.MethodPost, "/api/dashboard/properties/7/block-dates",
		map[string]string{"startDate": "2025-07-01", "endDate": "2025-07-05", "reason": "Repairs"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerCheckAvailabilityQueryAndBody(t *testing.T) {
	f := newFixture()
	f.bookings.On("FindOverlap", mock.Anything, int64(7), julyFirst, julyFifth).Return(nil, nil)
	f.repo.On("FindBlocked", mock.Anything, int64(7), julyFirst, julyFifth).Return(nil, nil)
	router := setupRouter(f)

	w := doRequest(router, http.MethodGet, "/api/properties/7/check-availability?startDate=2025-07-01&endDate=2025-07-05", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"available":true}`, w.Body.String())

	w = doRequest(router, http.MethodPost, "/api/properties/7/check-availability",
		map[string]string{"startDate": "2025-07-01", "endDate": "2025-07-05"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"available":true}`, w.Body.String())
}

func TestHandlerBookedDatesEmpty(t *testing.T) {
	f := newFixture()
	f.bookings.On("ListByProperty", mock.Anything, int64(7), mock.Anything).Return(nil, nil)
	router := setupRouter(f)

	w := doRequest(router, http.MethodGet, "/api/properties/7/booked-dates", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bookedDates":[]}`, w.Body.String())
}
