package processor

import (
	"math/rand"
	"time"
)

var vortexPayCardOverrides = map[string]cardOverride{
	"0000": {kind: HardDecline, reason: "fraud_detected"},
	"1111": {kind: SoftDecline, reason: "insufficient_funds"},
	"9999": {kind: Timeout},
}

// NewVortexPay builds the VortexPay mock processor: the lowest-fee,
// lowest-reliability option in the default roster.
func NewVortexPay(rng *rand.Rand) *Mock {
	return newMock(MockConfig{
		Name:         "vortexpay",
		FeeRate:      0.025,
		LatencyRange: [2]time.Duration{20 * time.Millisecond, 180 * time.Millisecond},
		OutcomeTable: []outcomeEntry{
			{cumulative: 0.68, kind: Success},
			{cumulative: 0.12, kind: SoftDecline},
			{cumulative: 0.07, kind: HardDecline},
			{cumulative: 0.08, kind: RateLimited},
			{cumulative: 0.05, kind: Timeout},
		},
		SoftReasons: []string{"insufficient_funds", "limit_exceeded", "processor_unavailable"},
		HardReasons: []string{
			"stolen_card", "do_not_honor", "invalid_account",
			"fraud_detected", "invalid_cvv", "card_expired",
		},
		CardOverrides: vortexPayCardOverrides,
		Rand:         rng,
	})
}
