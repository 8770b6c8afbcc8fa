package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(testConfig())
	})

	Describe("NewRegistry", func() {
		It("should create an empty registry", func() {
			Expect(registry).NotTo(BeNil())
			Expect(registry.List()).To(BeEmpty())
		})
	})

	Describe("Seed", func() {
		It("creates a new CLOSED breaker for an unseen processor", func() {
			cb := registry.Seed("VortexPay")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})

		It("returns the same breaker on repeated seeds", func() {
			cb1 := registry.Seed("VortexPay")
			cb2 := registry.Seed("VortexPay")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("preserves registration order in List", func() {
			registry.Seed("VortexPay")
			registry.Seed("SwiftPay")
			registry.Seed("PixFlow")
			Expect(registry.List()).To(Equal([]string{"VortexPay", "SwiftPay", "PixFlow"}))
		})

		It("is safe for concurrent seeding of the same name", func() {
			var wg sync.WaitGroup
			breakers := make([]*circuitbreaker.CircuitBreaker, 20)

			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					breakers[i] = registry.Seed("VortexPay")
				}(i)
			}
			wg.Wait()

			for i := 1; i < 20; i++ {
				Expect(breakers[i]).To(BeIdenticalTo(breakers[0]))
			}
		})
	})

	Describe("Get", func() {
		It("returns nil for an unknown processor", func() {
			Expect(registry.Get("Unknown")).To(BeNil())
		})

		It("returns the seeded breaker", func() {
			seeded := registry.Seed("VortexPay")
			Expect(registry.Get("VortexPay")).To(BeIdenticalTo(seeded))
		})
	})

	Describe("Reset", func() {
		It("reports false for an unknown processor", func() {
			Expect(registry.Reset("Unknown")).To(BeFalse())
		})

		It("resets a known processor's breaker", func() {
			now := time.Now()
			cb := registry.Seed("VortexPay")
			cb.InjectFailures(now, 6)
			Expect(cb.State()).To(Equal(circuitbreaker.Open))

			Expect(registry.Reset("VortexPay")).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.Closed))
		})
	})

	Describe("Inject", func() {
		It("reports false for an unknown processor", func() {
			Expect(registry.Inject("Unknown", time.Now(), 6)).To(BeFalse())
		})

		It("injects failures and re-evaluates the trip condition", func() {
			registry.Seed("VortexPay")
			Expect(registry.Inject("VortexPay", time.Now(), 6)).To(BeTrue())
			Expect(registry.Get("VortexPay").State()).To(Equal(circuitbreaker.Open))
		})
	})
})
