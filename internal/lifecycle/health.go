package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Proton-105/arbor-bot/internal/health"
)

// HealthChecker exposes liveness and readiness checks.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// HealthEndpoints answers liveness unconditionally and readiness from the component checks.
type HealthEndpoints struct {
	checker *health.Checker
	log     *slog.Logger
}

var _ HealthChecker = (*HealthEndpoints)(nil)

// NewHealthEndpoints creates a new HealthEndpoints instance.
func NewHealthEndpoints(checker *health.Checker, log *slog.Logger) *HealthEndpoints {
	if log == nil {
		log = slog.Default()
	}
	return &HealthEndpoints{checker: checker, log: log}
}

// Liveness reports that the process is running.
func (p *HealthEndpoints) Liveness(context.Context) error {
	p.log.Debug("liveness check called")
	return nil
}

// Readiness reports whether every dependency is reachable.
func (p *HealthEndpoints) Readiness(ctx context.Context) error {
	p.log.Debug("readiness check called")
	if p.checker == nil {
		return nil
	}
	return p.checker.Err(ctx)
}

// Register mounts /healthz and /readyz on mux.
func (p *HealthEndpoints) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		p.write(w, p.Liveness(r.Context()), nil)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if p.checker == nil {
			p.write(w, nil, nil)
			return
		}
		components := p.checker.Check(r.Context())
		p.write(w, health.Summarize(components), components)
	})
}

type statusResponse struct {
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

func (p *HealthEndpoints) write(w http.ResponseWriter, err error, components map[string]string) {
	resp := statusResponse{Status: "ok", Components: components}
	code := http.StatusOK
	if err != nil {
		resp.Status = "unavailable"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		p.log.Warn("failed to write health response", slog.Any("error", encodeErr))
	}
}
