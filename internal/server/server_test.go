package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fanpulse/internal/config"
)

type staticHealth struct {
	err error
}

func (s staticHealth) HealthCheck(context.Context) error { return s.err }

func healthzStatus(t *testing.T, db HealthChecker) int {
	t.Helper()
	srv := New(&Dependencies{Config: &config.Config{}, DB: db})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.http.Handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestHealthzReflectsDatabase(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, healthzStatus(t, staticHealth{}))
	assert.Equal(t, http.StatusServiceUnavailable, healthzStatus(t, staticHealth{err: assert.AnError}))
}
