// Package stats accumulates per-processor and overall transaction
// statistics for the /stats endpoint, mirroring the engine's own view of
// attempts and finals without feeding back into routing decisions.
package stats

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flexipay/fallback-engine/internal/processor"
)

type perProcessor struct {
	count        int64
	volume       decimal.Decimal
	fees         decimal.Decimal
	success      int64
	hardDecline  int64
	softDecline  int64
	timeout      int64
	rateLimited  int64
	latencySumMS float64
}

// ProcessorSnapshot is the immutable, JSON-ready view of one processor's
// accumulated stats.
type ProcessorSnapshot struct {
	ProcessorName     string  `json:"processor_name"`
	TransactionCount  int64   `json:"transaction_count"`
	TotalVolume       string  `json:"total_volume"`
	TotalFees         string  `json:"total_fees"`
	SuccessCount      int64   `json:"success_count"`
	HardDeclineCount  int64   `json:"hard_decline_count"`
	SoftDeclineCount  int64   `json:"soft_decline_count"`
	TimeoutCount      int64   `json:"timeout_count"`
	RateLimitedCount  int64   `json:"rate_limited_count"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
}

// Snapshot is the immutable, JSON-ready view of the /stats endpoint.
type Snapshot struct {
	TotalTransactions   int64                        `json:"total_transactions"`
	TotalApproved       int64                        `json:"total_approved"`
	TotalDeclined       int64                        `json:"total_declined"`
	TotalVolume         string                       `json:"total_volume"`
	TotalFeesCollected  string                       `json:"total_fees_collected"`
	OverallApprovalRate float64                      `json:"overall_approval_rate"`
	PerProcessor        map[string]ProcessorSnapshot `json:"per_processor"`
	UptimeSeconds       float64                      `json:"uptime_seconds"`
}

// Sink is an in-memory accumulator for transaction statistics. All
// mutations go through a single mutex; data does not survive a restart.
type Sink struct {
	mutex sync.Mutex

	startedAt time.Time

	totalTransactions int64
	totalApproved     int64
	totalDeclined     int64
	totalVolume       decimal.Decimal
	totalFees         decimal.Decimal

	perProcessor map[string]*perProcessor
}

// NewSink builds an empty statistics sink.
func NewSink() *Sink {
	return &Sink{
		startedAt:    time.Now(),
		totalVolume:  decimal.Zero,
		totalFees:    decimal.Zero,
		perProcessor: make(map[string]*perProcessor),
	}
}

// RecordAttempt is called once per individual processor call, successful
// or not, and feeds the per-processor breakdown.
func (s *Sink) RecordAttempt(processorName string, outcome processor.Outcome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, ok := s.perProcessor[processorName]
	if !ok {
		p = &perProcessor{volume: decimal.Zero, fees: decimal.Zero}
		s.perProcessor[processorName] = p
	}

	p.count++
	p.latencySumMS += outcome.LatencyMS

	switch outcome.Kind {
	case processor.Success:
		p.success++
		p.volume = p.volume.Add(outcome.Amount)
		p.fees = p.fees.Add(outcome.Fee)
	case processor.HardDecline:
		p.hardDecline++
	case processor.SoftDecline:
		p.softDecline++
	case processor.Timeout:
		p.timeout++
	case processor.RateLimited:
		p.rateLimited++
	}
}

// RecordFinal is called once per transaction with its final, overall
// outcome — independent of how many processor attempts it took.
func (s *Sink) RecordFinal(approved bool, amount, fee decimal.Decimal) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.totalTransactions++
	if approved {
		s.totalApproved++
		s.totalVolume = s.totalVolume.Add(amount)
		s.totalFees = s.totalFees.Add(fee)
	} else {
		s.totalDeclined++
	}
}

// Snapshot returns a point-in-time, JSON-ready copy of the accumulated
// statistics.
func (s *Sink) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	approvalRate := 0.0
	if s.totalTransactions > 0 {
		approvalRate = float64(s.totalApproved) / float64(s.totalTransactions)
	}

	perProc := make(map[string]ProcessorSnapshot, len(s.perProcessor))
	for name, p := range s.perProcessor {
		avgLatency := 0.0
		if p.count > 0 {
			avgLatency = p.latencySumMS / float64(p.count)
		}
		perProc[name] = ProcessorSnapshot{
			ProcessorName:    name,
			TransactionCount: p.count,
			TotalVolume:      p.volume.StringFixed(2),
			TotalFees:        p.fees.StringFixed(4),
			SuccessCount:     p.success,
			HardDeclineCount: p.hardDecline,
			SoftDeclineCount: p.softDecline,
			TimeoutCount:     p.timeout,
			RateLimitedCount: p.rateLimited,
			AvgLatencyMS:     round2(avgLatency),
		}
	}

	return Snapshot{
		TotalTransactions:   s.totalTransactions,
		TotalApproved:       s.totalApproved,
		TotalDeclined:       s.totalDeclined,
		TotalVolume:         s.totalVolume.StringFixed(2),
		TotalFeesCollected:  s.totalFees.StringFixed(4),
		OverallApprovalRate: round4(approvalRate),
		PerProcessor:        perProc,
		UptimeSeconds:       round2(time.Since(s.startedAt).Seconds()),
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
