// Package processor defines the Processor contract (C1) and the
// parameterized mock downstream processors used to exercise the fallback
// engine: VortexPay, SwiftPay, and PixFlow.
package processor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flexipay/fallback-engine/internal/transaction"
)

// OutcomeKind is the closed set of processor outcome kinds.
type OutcomeKind string

const (
	Success     OutcomeKind = "success"
	SoftDecline OutcomeKind = "soft_decline"
	HardDecline OutcomeKind = "hard_decline"
	RateLimited OutcomeKind = "rate_limited"
	Timeout     OutcomeKind = "timeout"
)

// Outcome is the classified result of one charge attempt.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	FeeRate   float64
	LatencyMS float64
}

// Processor is the abstraction for a charge attempt. Implementations
// MUST NOT panic under normal operation; Charge is expected to encode
// every error condition into the returned Outcome. A Processor may suspend
// for an arbitrary amount of time — the engine imposes the per-call
// timeout externally via ctx.
type Processor interface {
	Name() string
	FeeRate() float64
	Charge(ctx context.Context, request transaction.Request) Outcome
}

// InternalErrorOutcome is what the engine substitutes for a Processor that
// panics — treated as a SOFT_DECLINE with reason internal_error.
func InternalErrorOutcome() Outcome {
	return Outcome{Kind: SoftDecline, Reason: "internal_error"}
}

// elapsedMS is a small shared helper for latency measurement.
func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
