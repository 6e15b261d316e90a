package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdown_PhasesRunInOrder(t *testing.T) {
	s := NewShutdown(testLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	s.Register(PhaseStorage, "database", record("database"))
	s.Register(PhaseIngress, "discord", record("discord"))
	s.Register(PhaseWorkers, "cleaner", record("cleaner"))
	s.Register(PhaseIngress, "nil", nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"discord", "cleaner", "database"}, order)
}

func TestShutdown_CollectsErrors(t *testing.T) {
	s := NewShutdown(testLogger())
	boom := errors.New("boom")

	ran := false
	s.Register(PhaseIngress, "http", func(context.Context) error { return boom })
	s.Register(PhaseStorage, "redis", func(context.Context) error {
		ran = true
		return nil
	})

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http: boom")
	assert.True(t, ran)
}

func TestHealthEndpoints_Serve(t *testing.T) {
	checker := health.NewChecker(testLogger())
	healthy := true
	checker.AddCheck("discord", health.CheckFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("gateway down")
	}))

	mux := http.NewServeMux()
	NewHealthEndpoints(checker, testLogger()).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "gateway down", body.Components["discord"])
	assert.Contains(t, body.Error, "discord: gateway down")
}

func TestHealthEndpoints_ReadinessWithoutChecker(t *testing.T) {
	p := NewHealthEndpoints(nil, nil)
	assert.NoError(t, p.Liveness(context.Background()))
	assert.NoError(t, p.Readiness(context.Background()))
}
