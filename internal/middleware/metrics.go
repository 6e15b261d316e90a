package middleware

import (
	"time"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/pkg/metrics"
)

// Metrics measures execution time and status for command handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c handlers.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		command := c.Command()
		if command == "" {
			command = "unknown"
		}

		metrics.RecordCommand(command, status, time.Since(start))

		return err
	}
}
