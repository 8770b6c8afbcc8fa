package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexipay/fallback-engine/config"
	"github.com/flexipay/fallback-engine/internal/backoff"
	"github.com/flexipay/fallback-engine/internal/breakerwatch"
	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
	"github.com/flexipay/fallback-engine/internal/engine"
	"github.com/flexipay/fallback-engine/internal/httpapi"
	"github.com/flexipay/fallback-engine/internal/httpserver"
	"github.com/flexipay/fallback-engine/internal/processor"
	"github.com/flexipay/fallback-engine/internal/stats"
	"github.com/flexipay/fallback-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	processors := []processor.Processor{
		processor.NewVortexPay(rng),
		processor.NewSwiftPay(rng),
		processor.NewPixFlow(rng),
	}

	registry := circuitbreaker.NewRegistry(circuitbreaker.Config{
		WindowSize:      cfg.CB.RollingWindowSize,
		WindowSeconds:   cfg.CB.WindowSeconds(),
		TripThreshold:   cfg.CB.TripThreshold,
		CooldownSeconds: cfg.CB.Cooldown(),
		MinSamples:      cfg.CB.MinSamples,
	})

	sink := stats.NewSink()
	backoffCtrl := backoff.NewController(cfg.Backoff.Base(), cfg.Backoff.Cap(), cfg.Backoff.MaxRetries, rand.New(rand.NewSource(time.Now().UnixNano())))

	eng := engine.New(engine.Config{
		Processors:  processors,
		Registry:    registry,
		Stats:       sink,
		BackoffCtrl: backoffCtrl,
		CallTimeout: cfg.Processor.Timeout(),
		MaxRetries:  cfg.Backoff.MaxRetries,
		Logger:      log,
	})

	feeRates := make(map[string]float64, len(processors))
	for _, p := range processors {
		feeRates[p.Name()] = p.FeeRate()
	}

	handler := httpapi.New(log, eng, registry, sink, feeRates)

	watchInterval, err := time.ParseDuration(cfg.BreakerWatch.Interval)
	if err != nil {
		log.Error("invalid breaker watch interval", slog.Any("err", err))
		os.Exit(1)
	}
	go breakerwatch.Watch(ctx, registry, watchInterval, log)

	requestBudget := (cfg.Processor.Timeout() + cfg.Backoff.Cap()) * time.Duration(cfg.Backoff.MaxRetries+1) * time.Duration(len(processors))
	srv, err := httpserver.New(cfg.Server.Address, handler.Routes(), requestBudget)
	if err != nil {
		log.Error("failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("flexipay fallback engine listening",
		slog.String("address", cfg.Server.Address),
		slog.Int("processors", len(processors)))

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
