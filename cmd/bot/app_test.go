package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/health"
	"github.com/Proton-105/arbor-bot/internal/ratelimit"
	"github.com/Proton-105/arbor-bot/internal/state"
	"github.com/Proton-105/arbor-bot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":9090", listenAddr("9090"))
	assert.Equal(t, ":9090", listenAddr(":9090"))
	assert.Equal(t, "127.0.0.1:8080", listenAddr("127.0.0.1:8080"))
}

func TestOpenBackends_InMemoryWithoutRedis(t *testing.T) {
	b, err := openBackends(context.Background(), config.Config{}, testLogger())
	require.NoError(t, err)

	assert.Nil(t, b.redis)
	assert.Nil(t, b.rawRedis())
	assert.IsType(t, &state.MemoryStorage{}, b.storage)
	assert.IsType(t, &state.LocalLocker{}, b.locker)
	assert.IsType(t, &ratelimit.MemoryLimiter{}, b.limiter)
	assert.NotNil(t, b.idempotency)
}

func TestHTTPHandler_Routes(t *testing.T) {
	checker := health.NewChecker(testLogger())
	h := newHTTPHandler(checker, testLogger())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
