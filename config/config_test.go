package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexipay/fallback-engine/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: ":8080"
  environment: "dev"

cb:
  rolling_window_size: 50
  rolling_window_seconds: 300
  trip_threshold: 0.20
  cooldown_seconds: 120
  min_samples: 5

backoff:
  base_seconds: 0.5
  max_seconds: 30
  max_retries: 2

processor:
  timeout_seconds: 3.0

breaker_watch:
  interval: "10s"

logging:
  level: "info"
`
				configPath := filepath.Join(tempDir, "config.yaml")
				Expect(os.WriteFile(configPath, []byte(configContent), 0644)).To(Succeed())
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			It("loads without error", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("parses the circuit breaker section", func() {
				cfg, _ := config.Load()
				Expect(cfg.CB.RollingWindowSize).To(Equal(50))
				Expect(cfg.CB.TripThreshold).To(Equal(0.20))
				Expect(cfg.CB.Cooldown().Seconds()).To(Equal(120.0))
			})

			It("parses the backoff section", func() {
				cfg, _ := config.Load()
				Expect(cfg.Backoff.MaxRetries).To(Equal(2))
				Expect(cfg.Backoff.Cap().Seconds()).To(Equal(30.0))
			})
		})

		Context("with no config file and no environment overrides", func() {
			BeforeEach(func() {
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			It("falls back to documented defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.CB.RollingWindowSize).To(Equal(50))
				Expect(cfg.CB.MinSamples).To(Equal(5))
				Expect(cfg.Backoff.MaxRetries).To(Equal(2))
				Expect(cfg.Processor.TimeoutSeconds).To(Equal(3.0))
			})
		})
	})
})
