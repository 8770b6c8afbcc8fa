package processor

import (
	"math/rand"
	"time"
)

var swiftPayCardOverrides = map[string]cardOverride{
	"0000": {kind: HardDecline, reason: "fraud_detected"},
	"1111": {kind: SoftDecline, reason: "insufficient_funds"},
	"9999": {kind: Timeout},
}

// NewSwiftPay builds the SwiftPay mock processor: a mid-fee, mid-reliability
// option that sits between VortexPay and PixFlow in the default roster.
func NewSwiftPay(rng *rand.Rand) *Mock {
	return newMock(MockConfig{
		Name:         "swiftpay",
		FeeRate:      0.029,
		LatencyRange: [2]time.Duration{30 * time.Millisecond, 200 * time.Millisecond},
		OutcomeTable: []outcomeEntry{
			{cumulative: 0.74, kind: Success},
			{cumulative: 0.10, kind: SoftDecline},
			{cumulative: 0.06, kind: HardDecline},
			{cumulative: 0.06, kind: RateLimited},
			{cumulative: 0.04, kind: Timeout},
		},
		SoftReasons: []string{"insufficient_funds", "processor_timeout", "temporary_unavailable"},
		HardReasons: []string{
			"stolen_card", "do_not_honor", "fraud_detected",
			"invalid_card_number", "card_expired",
		},
		CardOverrides: swiftPayCardOverrides,
		Rand:          rng,
	})
}
