package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/sse"
	"github.com/V-SK/moltboard/internal/api"
	"github.com/V-SK/moltboard/internal/config"
	"github.com/V-SK/moltboard/internal/leaderboard"
	"github.com/V-SK/moltboard/internal/metrics"
	"github.com/V-SK/moltboard/internal/upstream"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the moltboard HTTP server",
		Long: `Start the HTTP server that proxies the Moltbook API, serves the cached
agent leaderboard and streams leaderboard updates over SSE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, "")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New(nil)

	client := upstream.NewClient(upstream.Config{
		BaseURL:          cfg.Upstream.BaseURL,
		APIKey:           cfg.Upstream.APIKey,
		Timeout:          cfg.Upstream.Timeout,
		BreakerThreshold: cfg.Upstream.BreakerThreshold,
		BreakerTimeout:   cfg.Upstream.BreakerTimeout,
	}, log, m)

	var broker sse.Broker
	if !cfg.SSE.Disabled {
		broker = sse.NewBroker(log,
			sse.WithHeartbeatInterval(cfg.SSE.Heartbeat),
			sse.WithMaxClients(cfg.SSE.MaxClients),
			sse.WithReplayLatest(),
		)
		if startErr := broker.Start(ctx); startErr != nil {
			return fmt.Errorf("start SSE broker: %w", startErr)
		}
		defer func() {
			if stopErr := broker.Stop(); stopErr != nil {
				log.Warn("SSE broker stop failed", infralogger.Error(stopErr))
			}
		}()
	}

	svc := leaderboard.NewService(newStrategy(cfg, client, log, m), leaderboard.Options{
		TTL:            cfg.Leaderboard.TTL,
		ComputeTimeout: cfg.Leaderboard.ComputeTimeout,
		Publisher:      broker,
		Metrics:        m,
	}, log)

	server := api.NewServer(cfg, api.Deps{
		Proxy:       client,
		Breaker:     client,
		Leaderboard: svc,
		Broker:      broker,
		Metrics:     m,
		Logger:      log,
	})

	log.Info("Starting moltboard",
		infralogger.Int("port", cfg.Service.Port),
		infralogger.String("upstream", cfg.Upstream.BaseURL),
		infralogger.String("strategy", svc.Strategy()),
		infralogger.Duration("leaderboard_ttl", cfg.Leaderboard.TTL),
		infralogger.Bool("sse", broker != nil),
		infralogger.Bool("api_key", cfg.Upstream.APIKey != ""),
	)

	return server.RunWithGracefulShutdown(ctx)
}

// newStrategy picks the leaderboard strategy named in the config.
func newStrategy(cfg *config.Config, client *upstream.Client, log infralogger.Logger, m *metrics.Metrics) leaderboard.Strategy {
	if cfg.Leaderboard.Strategy == config.StrategyPassthrough {
		return leaderboard.NewPassthrough(client)
	}
	return leaderboard.NewFanOut(client, leaderboard.FanOutConfig{
		PostWindow:  cfg.Leaderboard.PostWindow,
		MaxAuthors:  cfg.Leaderboard.MaxAuthors,
		Concurrency: cfg.Leaderboard.FanOutConcurrency,
		RPS:         cfg.Leaderboard.FanOutRPS,
	}, log, m)
}
