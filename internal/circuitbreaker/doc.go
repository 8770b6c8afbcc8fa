// Package circuitbreaker implements the per-processor circuit breaker that
// protects the fallback engine from wasting time on failing downstream
// payment processors.
//
// Each breaker wraps a rolling window of recent success/failure samples,
// bounded by both sample count and sample age, and exposes a three-state
// machine:
//
//   - CLOSED: healthy, requests pass through
//   - OPEN: tripped, requests rejected until the cooldown elapses
//   - HALF_OPEN: cooldown elapsed, a single probe request is admitted
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.Config{
//	    WindowSize: 50, WindowSeconds: 300 * time.Second, TripThreshold: 0.20,
//	    CooldownSeconds: 120 * time.Second, MinSamples: 5,
//	})
//	cb := registry.Seed("vortexpay")
//	if d := cb.Allow(time.Now()); d.Decision == circuitbreaker.Pass {
//	    // invoke the processor...
//	    cb.RecordSuccess(time.Now())
//	}
package circuitbreaker
