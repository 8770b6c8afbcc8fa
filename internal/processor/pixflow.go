package processor

import (
	"math/rand"
	"time"
)

var pixFlowCardOverrides = map[string]cardOverride{
	"0000": {kind: HardDecline, reason: "fraud_detected"},
	"1111": {kind: SoftDecline, reason: "insufficient_funds"},
	"9999": {kind: Timeout},
}

// NewPixFlow builds the PixFlow mock processor: the highest-fee,
// highest-reliability option, and the most expensive entry in the default
// roster's ascending fee-rate ordering.
func NewPixFlow(rng *rand.Rand) *Mock {
	return newMock(MockConfig{
		Name:         "pixflow",
		FeeRate:      0.032,
		LatencyRange: [2]time.Duration{50 * time.Millisecond, 250 * time.Millisecond},
		OutcomeTable: []outcomeEntry{
			{cumulative: 0.82, kind: Success},
			{cumulative: 0.08, kind: SoftDecline},
			{cumulative: 0.05, kind: HardDecline},
			{cumulative: 0.03, kind: RateLimited},
			{cumulative: 0.02, kind: Timeout},
		},
		SoftReasons: []string{"insufficient_funds", "account_frozen", "pix_limit_exceeded", "temporary_unavailable"},
		HardReasons: []string{"stolen_card", "do_not_honor", "fraud_detected", "invalid_pix_key"},
		CardOverrides: pixFlowCardOverrides,
		Rand:          rng,
	})
}
