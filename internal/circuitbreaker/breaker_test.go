package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
)

func testConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		WindowSize:      50,
		WindowSeconds:   5 * time.Minute,
		TripThreshold:   0.20,
		CooldownSeconds: 2 * time.Minute,
		MinSamples:      5,
	}
}

var _ = Describe("CircuitBreaker", func() {
	var (
		cb  *circuitbreaker.CircuitBreaker
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		cb = circuitbreaker.NewCircuitBreaker(testConfig())
	})

	Describe("NewCircuitBreaker", func() {
		It("starts CLOSED with no opened_at", func() {
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
			Expect(cb.Status(now).State).To(Equal(circuitbreaker.Closed))
		})
	})

	Describe("trip guard", func() {
		It("never trips below the minimum sample count", func() {
			for i := 0; i < 4; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})

		It("trips once total >= M and success_rate < T", func() {
			for i := 0; i < 5; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			Expect(cb.State()).To(Equal(circuitbreaker.Open))
		})

		It("does not trip if the success rate stays at or above the threshold", func() {
			cb.RecordSuccess(now)
			cb.RecordSuccess(now)
			cb.RecordSuccess(now)
			cb.RecordSuccess(now)
			cb.RecordFailure(now, circuitbreaker.SoftDecline)
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})
	})

	Context("when OPEN", func() {
		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			Expect(cb.State()).To(Equal(circuitbreaker.Open))
		})

		It("rejects before the cooldown elapses", func() {
			admission := cb.Allow(now.Add(119 * time.Second))
			Expect(admission.Decision).To(Equal(circuitbreaker.Reject))
			Expect(admission.Reason).To(Equal("circuit_open"))
		})

		It("admits exactly one probe once the cooldown elapses", func() {
			admission := cb.Allow(now.Add(120 * time.Second))
			Expect(admission.Decision).To(Equal(circuitbreaker.Pass))
			Expect(admission.IsProbe).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.HalfOpen))
		})

		It("rejects a second concurrent probe while one is in flight", func() {
			cb.Allow(now.Add(120 * time.Second))
			second := cb.Allow(now.Add(121 * time.Second))
			Expect(second.Decision).To(Equal(circuitbreaker.Reject))
		})
	})

	Context("when HALF_OPEN", func() {
		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			cb.Allow(now.Add(2 * time.Minute))
			Expect(cb.State()).To(Equal(circuitbreaker.HalfOpen))
		})

		It("closes and clears the window on a single success", func() {
			cb.RecordSuccess(now.Add(2 * time.Minute))
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))

			status := cb.Status(now.Add(2 * time.Minute))
			Expect(status.TotalCallsInWindow).To(Equal(0))
		})

		It("reopens with a fresh cooldown on failure", func() {
			cb.RecordFailure(now.Add(2*time.Minute), circuitbreaker.SoftDecline)
			Expect(cb.State()).To(Equal(circuitbreaker.Open))

			rejected := cb.Allow(now.Add(2*time.Minute + time.Second))
			Expect(rejected.Decision).To(Equal(circuitbreaker.Reject))
		})

		It("reopens on a hard-declined probe instead of stranding the breaker HALF_OPEN", func() {
			cb.RecordFailure(now.Add(2*time.Minute), circuitbreaker.HardDecline)
			Expect(cb.State()).To(Equal(circuitbreaker.Open))

			admission := cb.Allow(now.Add(2*time.Minute + time.Second))
			Expect(admission.Decision).To(Equal(circuitbreaker.Reject))

			recovered := cb.Allow(now.Add(2*time.Minute + 2*time.Minute))
			Expect(recovered.Decision).To(Equal(circuitbreaker.Pass))
			Expect(recovered.IsProbe).To(BeTrue())
		})
	})

	Describe("HARD_DECLINE accounting", func() {
		It("never appends to the window but still tracks last_failure_at", func() {
			cb.RecordFailure(now, circuitbreaker.HardDecline)
			status := cb.Status(now)
			Expect(status.TotalCallsInWindow).To(Equal(0))
			Expect(status.LastFailureAt).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})
	})

	Describe("trip evaluation on success", func() {
		It("can trip the breaker the moment a success call ages out stale successes", func() {
			for i := 0; i < 4; i++ {
				cb.RecordSuccess(now)
			}
			for i := 0; i < 5; i++ {
				cb.RecordFailure(now.Add(4*time.Minute), circuitbreaker.SoftDecline)
			}
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))

			// The 4 old successes age out of the 5-minute window here,
			// leaving 5 failures and 1 success — below threshold — and
			// RecordSuccess itself must catch the trip, not a later failure.
			cb.RecordSuccess(now.Add(6 * time.Minute))
			Expect(cb.State()).To(Equal(circuitbreaker.Open))
		})
	})

	Describe("status reporting", func() {
		It("reports success_rate 1.0 for an empty window", func() {
			Expect(cb.Status(now).SuccessRate).To(Equal(1.0))
		})

		It("reports cooldown_remaining only while OPEN", func() {
			Expect(cb.Status(now).CooldownRemainingSeconds).To(BeNil())

			for i := 0; i < 5; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			status := cb.Status(now.Add(30 * time.Second))
			Expect(status.CooldownRemainingSeconds).NotTo(BeNil())
			Expect(*status.CooldownRemainingSeconds).To(BeNumerically("~", 90, 1))
		})
	})

	Describe("Reset", func() {
		It("returns to CLOSED with an empty window", func() {
			for i := 0; i < 5; i++ {
				cb.RecordFailure(now, circuitbreaker.SoftDecline)
			}
			cb.Reset()
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
			Expect(cb.Status(now).TotalCallsInWindow).To(Equal(0))
		})

		It("is idempotent", func() {
			cb.Reset()
			first := cb.Status(now)
			cb.Reset()
			second := cb.Status(now)
			Expect(second).To(Equal(first))
		})
	})

	Describe("InjectFailures", func() {
		It("trips immediately once injected failures clear the threshold", func() {
			cb.InjectFailures(now, 6)
			status := cb.Status(now)
			Expect(status.TotalCallsInWindow).To(Equal(6))
			Expect(status.SuccessfulCallsInWindow).To(Equal(0))
			Expect(cb.State()).To(Equal(circuitbreaker.Open))
		})

		It("does not trip below the minimum sample count", func() {
			cb.InjectFailures(now, 4)
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})
	})
})
