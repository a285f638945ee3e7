package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coretrack/warranty-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func callWithKey(t *testing.T, configured, sent string) *httptest.ResponseRecorder {
	t.Helper()
	handler := middleware.APIKeyAuth(configured, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	if sent != "" {
		req.Header.Set("X-API-Key", sent)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAccepted(t *testing.T) {
	rec := callWithKey(t, "secret", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyRejected(t *testing.T) {
	rec := callWithKey(t, "secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyMissing(t *testing.T) {
	rec := callWithKey(t, "secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyDisabledWhenUnconfigured(t *testing.T) {
	rec := callWithKey(t, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
