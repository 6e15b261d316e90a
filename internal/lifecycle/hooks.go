package lifecycle

import "context"

// Phase orders shutdown hooks. Lower phases finish before higher ones start.
type Phase int

const (
	// PhaseIngress stops accepting new work: gateway session, HTTP server.
	PhaseIngress Phase = iota
	// PhaseWorkers stops background loops that still touch storage.
	PhaseWorkers
	// PhaseStorage closes database and cache connections.
	PhaseStorage
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
