// Package engine orchestrates the processor chain: ranking by fee rate,
// per-call timeouts, outcome classification, and retry/skip/stop
// decisions against the circuit breaker registry and backoff controller.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flexipay/fallback-engine/internal/backoff"
	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
	"github.com/flexipay/fallback-engine/internal/money"
	"github.com/flexipay/fallback-engine/internal/processor"
	"github.com/flexipay/fallback-engine/internal/stats"
	"github.com/flexipay/fallback-engine/internal/transaction"
)

// candidate is one registered processor paired with its registration
// index, used as the tie-break when fee rates are equal.
type candidate struct {
	proc  processor.Processor
	order int
}

// Engine orchestrates the processor chain. It holds no per-transaction
// state: every field is either immutable after construction or itself
// internally synchronized (the breaker registry, the stats sink).
type Engine struct {
	candidates  []candidate
	registry    *circuitbreaker.Registry
	stats       *stats.Sink
	backoffCtrl *backoff.Controller
	callTimeout time.Duration
	maxRetries  int
	logger      *slog.Logger
}

// Config wires an Engine's dependencies and timing parameters.
type Config struct {
	Processors  []processor.Processor
	Registry    *circuitbreaker.Registry
	Stats       *stats.Sink
	BackoffCtrl *backoff.Controller
	CallTimeout time.Duration
	MaxRetries  int
	Logger      *slog.Logger
}

// New builds an Engine and seeds one breaker per processor in the order
// given, which becomes the tie-break order for candidate ranking.
func New(cfg Config) *Engine {
	candidates := make([]candidate, 0, len(cfg.Processors))
	for i, p := range cfg.Processors {
		cfg.Registry.Seed(p.Name())
		candidates = append(candidates, candidate{proc: p, order: i})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		candidates:  candidates,
		registry:    cfg.Registry,
		stats:       cfg.Stats,
		backoffCtrl: cfg.BackoffCtrl,
		callTimeout: cfg.CallTimeout,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}
}

// rankedCandidates returns the candidate list sorted ascending by fee
// rate, tie-broken by registration order. Recomputed on every call so the
// ranking contract stays pure even though fee rates are config-static.
func (e *Engine) rankedCandidates() []candidate {
	ranked := make([]candidate, len(e.candidates))
	copy(ranked, e.candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].proc.FeeRate() < ranked[j].proc.FeeRate()
	})
	return ranked
}

// Process runs the fallback algorithm for one transaction request and
// returns its terminal response. It never panics: a misbehaving
// Processor is caught and folded into SoftDecline/internal_error.
func (e *Engine) Process(ctx context.Context, request transaction.Request) transaction.Response {
	start := time.Now()

	attempts := 0
	var trail []string
	var lastOutcome processor.Outcome
	var lastProcessorName string

	for _, c := range e.rankedCandidates() {
		p := c.proc
		breaker := e.registry.Get(p.Name())

		admission := breaker.Allow(time.Now())
		if admission.Decision == circuitbreaker.Reject {
			trail = append(trail, fmt.Sprintf("%s(circuit_open)", p.Name()))
			e.logger.Warn("circuit open, skipping processor",
				slog.String("transaction_id", request.TransactionID),
				slog.String("processor", p.Name()))
			continue
		}

		for attempt := 0; attempt <= e.maxRetries; attempt++ {
			if attempt > 0 {
				delay := e.backoffCtrl.Delay(attempt - 1)
				e.logger.Info("backoff retry",
					slog.String("transaction_id", request.TransactionID),
					slog.String("processor", p.Name()),
					slog.Int("attempt", attempt),
					slog.Duration("delay", delay))

				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return e.respondCancelled(request, attempts, trail)
				}
			}

			attempts++
			outcome := e.charge(ctx, p, request)
			if ctx.Err() != nil && outcome.Kind == processor.Timeout {
				return e.respondCancelled(request, attempts, trail)
			}

			lastOutcome = outcome
			lastProcessorName = p.Name()
			e.stats.RecordAttempt(p.Name(), outcome)

			e.logger.Info("processor attempt",
				slog.String("transaction_id", request.TransactionID),
				slog.String("processor", p.Name()),
				slog.Int("attempt", attempts),
				slog.String("outcome", string(outcome.Kind)),
				slog.String("reason", outcome.Reason),
				slog.Float64("latency_ms", outcome.LatencyMS))

			switch outcome.Kind {
			case processor.Success:
				breaker.RecordSuccess(time.Now())
				trail = append(trail, fmt.Sprintf("%s(success)", p.Name()))
				e.stats.RecordFinal(true, request.Amount, outcome.Fee)
				return e.respondApproved(request, p, outcome, attempts, trail, start)

			case processor.HardDecline:
				breaker.RecordFailure(time.Now(), circuitbreaker.HardDecline)
				trail = append(trail, fmt.Sprintf("%s(hard_decline:%s)", p.Name(), outcome.Reason))
				e.stats.RecordFinal(false, decimal.Zero, decimal.Zero)
				return e.respondDeclined(request, p.Name(), outcome.Reason, "hard", attempts, trail, start)

			case processor.RateLimited:
				breaker.RecordFailure(time.Now(), circuitbreaker.RateLimited)
				trail = append(trail, fmt.Sprintf("%s(rate_limited)", p.Name()))
				if attempt < e.maxRetries {
					continue
				}

			case processor.SoftDecline:
				breaker.RecordFailure(time.Now(), circuitbreaker.SoftDecline)
				trail = append(trail, fmt.Sprintf("%s(soft_decline:%s)", p.Name(), outcome.Reason))

			case processor.Timeout:
				breaker.RecordFailure(time.Now(), circuitbreaker.Timeout)
				trail = append(trail, fmt.Sprintf("%s(timeout)", p.Name()))
			}

			break // any non-success, non-retried outcome moves to the next processor
		}
	}

	e.stats.RecordFinal(false, decimal.Zero, decimal.Zero)

	declineReason := "all_processors_failed"
	if lastOutcome.Reason != "" {
		declineReason = lastOutcome.Reason
	}
	return e.respondDeclined(request, lastProcessorName, declineReason, "soft", attempts, trail, start)
}

// charge invokes the processor under the engine's per-call timeout,
// recovering from a panic as SOFT_DECLINE/internal_error.
func (e *Engine) charge(ctx context.Context, p processor.Processor, request transaction.Request) processor.Outcome {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	outcomeCh := make(chan processor.Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- processor.InternalErrorOutcome()
			}
		}()
		outcomeCh <- p.Charge(callCtx, request)
	}()

	select {
	case outcome := <-outcomeCh:
		return outcome
	case <-callCtx.Done():
		return processor.Outcome{Kind: processor.Timeout, Reason: "timeout", LatencyMS: float64(e.callTimeout / time.Millisecond)}
	}
}

func (e *Engine) respondApproved(request transaction.Request, p processor.Processor, outcome processor.Outcome, attempts int, trail []string, start time.Time) transaction.Response {
	processorName := p.Name()
	fee := money.Fee(request.Amount, p.FeeRate())
	feeStr := fee.StringFixed(4)
	feeRate := p.FeeRate()

	return transaction.Response{
		TransactionID:   request.TransactionID,
		Status:          "approved",
		ProcessorUsed:   &processorName,
		Amount:          request.Amount.StringFixed(2),
		Currency:        string(request.Currency),
		Fee:             &feeStr,
		FeeRate:         &feeRate,
		Attempts:        attempts,
		ProcessorsTried: trail,
		LatencyMS:       elapsedMS(start),
		ProcessedAt:     time.Now().UTC(),
	}
}

func (e *Engine) respondDeclined(request transaction.Request, processorName, reason, declineType string, attempts int, trail []string, start time.Time) transaction.Response {
	resp := transaction.Response{
		TransactionID:   request.TransactionID,
		Status:          "declined",
		Amount:          request.Amount.StringFixed(2),
		Currency:        string(request.Currency),
		DeclineReason:   &reason,
		DeclineType:     &declineType,
		Attempts:        attempts,
		ProcessorsTried: trail,
		LatencyMS:       elapsedMS(start),
		ProcessedAt:     time.Now().UTC(),
	}
	if processorName != "" {
		resp.ProcessorUsed = &processorName
	}
	return resp
}

func (e *Engine) respondCancelled(request transaction.Request, attempts int, trail []string) transaction.Response {
	reason := "cancelled"
	declineType := "soft"
	return transaction.Response{
		TransactionID:   request.TransactionID,
		Status:          "declined",
		Amount:          request.Amount.StringFixed(2),
		Currency:        string(request.Currency),
		DeclineReason:   &reason,
		DeclineType:     &declineType,
		Attempts:        attempts,
		ProcessorsTried: trail,
		ProcessedAt:     time.Now().UTC(),
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
