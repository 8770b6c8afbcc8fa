package processor

import (
	"context"
	"math/rand"
	"time"

	"github.com/flexipay/fallback-engine/internal/money"
	"github.com/flexipay/fallback-engine/internal/transaction"
)

// outcomeEntry is one (probability, outcome kind) pair of a Mock's outcome
// table. Each entry holds its own outcome's probability; pickOutcome sums
// them in table order. They need not sum to exactly 1.0; any remainder
// maps to Success.
type outcomeEntry struct {
	cumulative float64
	kind       OutcomeKind
}

// cardOverride forces a deterministic outcome for a given card_last_four,
// matched before random sampling, so demos and tests can trigger a
// specific outcome without touching the routing logic.
type cardOverride struct {
	kind   OutcomeKind
	reason string
}

// Mock is a parameterized mock processor. VortexPay, SwiftPay, and PixFlow
// share this single Charge implementation and differ only in name, fee,
// latency envelope, and outcome table.
type Mock struct {
	name          string
	feeRate       float64
	minLatency    time.Duration
	maxLatency    time.Duration
	outcomeTable  []outcomeEntry
	softReasons   []string
	hardReasons   []string
	cardOverrides map[string]cardOverride
	rng           *rand.Rand
}

// MockConfig parameterizes one mock processor instance.
type MockConfig struct {
	Name          string
	FeeRate       float64
	LatencyRange  [2]time.Duration
	OutcomeTable  []outcomeEntry
	SoftReasons   []string
	HardReasons   []string
	CardOverrides map[string]cardOverride
	Rand          *rand.Rand
}

func newMock(cfg MockConfig) *Mock {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Mock{
		name:          cfg.Name,
		feeRate:       cfg.FeeRate,
		minLatency:    cfg.LatencyRange[0],
		maxLatency:    cfg.LatencyRange[1],
		outcomeTable:  cfg.OutcomeTable,
		softReasons:   cfg.SoftReasons,
		hardReasons:   cfg.HardReasons,
		cardOverrides: cfg.CardOverrides,
		rng:           rng,
	}
}

func (m *Mock) Name() string     { return m.name }
func (m *Mock) FeeRate() float64 { return m.feeRate }

func (m *Mock) pickOutcome() OutcomeKind {
	r := m.rng.Float64()
	cumulative := 0.0
	for _, entry := range m.outcomeTable {
		cumulative += entry.cumulative
		if r < cumulative {
			return entry.kind
		}
	}
	return Success
}

func (m *Mock) pickReason(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	return reasons[m.rng.Intn(len(reasons))]
}

// Charge simulates a network round trip and returns a classified Outcome.
// It never blocks past the caller's ctx deadline — for a TIMEOUT outcome
// it blocks until ctx is done, so the engine's own wall-clock timeout is
// what actually fires.
func (m *Mock) Charge(ctx context.Context, request transaction.Request) Outcome {
	start := time.Now()

	latency := m.minLatency
	if m.maxLatency > m.minLatency {
		latency += time.Duration(m.rng.Int63n(int64(m.maxLatency - m.minLatency)))
	}

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return Outcome{Kind: Timeout, Reason: "timeout", LatencyMS: elapsedMS(start)}
	}

	kind := Success
	reason := ""
	if override, ok := m.cardOverrides[request.CardLastFour]; ok {
		kind, reason = override.kind, override.reason
	} else {
		kind = m.pickOutcome()
	}

	latencyMS := elapsedMS(start)

	switch kind {
	case Success:
		fee := money.Fee(request.Amount, m.feeRate)
		return Outcome{
			Kind:      Success,
			Amount:    request.Amount,
			Fee:       fee,
			FeeRate:   m.feeRate,
			LatencyMS: latencyMS,
		}

	case SoftDecline:
		if reason == "" {
			reason = m.pickReason(m.softReasons)
		}
		return Outcome{Kind: SoftDecline, Reason: reason, LatencyMS: latencyMS}

	case HardDecline:
		if reason == "" {
			reason = m.pickReason(m.hardReasons)
		}
		return Outcome{Kind: HardDecline, Reason: reason, LatencyMS: latencyMS}

	case RateLimited:
		return Outcome{Kind: RateLimited, Reason: "rate_limit_exceeded", LatencyMS: latencyMS}

	default: // Timeout: block until the caller's context is cancelled.
		<-ctx.Done()
		return Outcome{Kind: Timeout, Reason: "timeout", LatencyMS: latencyMS}
	}
}
