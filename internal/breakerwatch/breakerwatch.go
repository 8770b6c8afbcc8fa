// Package breakerwatch periodically checks every registered circuit
// breaker and logs state changes and open breakers so operators can see
// trips and recoveries without polling the status endpoint.
package breakerwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
)

// Watch runs until ctx is cancelled, logging a line per processor
// whenever its breaker state changes and a warning line on every tick
// while a breaker remains open.
func Watch(ctx context.Context, registry *circuitbreaker.Registry, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastState := make(map[string]circuitbreaker.State)

	for {
		select {
		case <-ctx.Done():
			logger.Info("breaker watch stopped")
			return

		case <-ticker.C:
			now := time.Now()
			for _, name := range registry.List() {
				cb := registry.Get(name)
				if cb == nil {
					continue
				}

				state := cb.State()
				if prev, seen := lastState[name]; seen && prev != state {
					logger.Warn("breaker state changed",
						slog.String("processor", name),
						slog.String("from", prev.String()),
						slog.String("to", state.String()))
				}
				lastState[name] = state

				if state == circuitbreaker.Open {
					status := cb.Status(now)
					logger.Warn("breaker open",
						slog.String("processor", name),
						slog.Float64("success_rate", status.SuccessRate),
						slog.Int("total_calls_in_window", status.TotalCallsInWindow))
				}
			}
		}
	}
}
