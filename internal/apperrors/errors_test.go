package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("missing")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(fmt.Errorf("wrapped: %w", BadRequest("bad"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"app error", Forbidden("nope"), http.StatusForbidden, `{"error":"nope"}`},
		{"internal app error hides cause", Internal("Failed to load", errors.New("pq: timeout")), http.StatusInternalServerError, `{"error":"Failed to load"}`},
		{"plain error uses fallback", errors.New("secret detail"), http.StatusInternalServerError, `{"error":"Something failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Respond(c, zap.NewNop(), tt.err, "Something failed")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
