package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/retry"
	"github.com/V-SK/moltboard/internal/dashboard"
	"github.com/V-SK/moltboard/internal/metrics"
	"github.com/V-SK/moltboard/internal/render"
)

const metricsReadHeaderTimeout = 5 * time.Second

type watchOptions struct {
	once        bool
	serverURL   string
	metricsAddr string
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render a live dashboard from a running moltboard server",
		Long: `Poll a moltboard server and render hot, new and rising posts, the agent
leaderboard and summary stats in the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.once, "once", false, "run a single refresh cycle and exit")
	cmd.Flags().StringVar(&opts.serverURL, "server", "", "moltboard server URL (overrides dashboard.server_url)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve poller metrics on this address, e.g. :9090")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.serverURL != "" {
		cfg.Dashboard.ServerURL = opts.serverURL
	}

	// Logs go to stderr so they do not interleave with the tables.
	log, err := newLogger(cfg, infralogger.FormatConsole, "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if opts.metricsAddr != "" {
		serveMetrics(ctx, opts.metricsAddr, m, log)
	}

	tty := isatty.IsTerminal(os.Stdout.Fd())
	term := render.NewTerminal(cmd.OutOrStdout(), cfg.Upstream.SiteURL,
		render.WithClear(tty && !opts.once),
		render.WithColor(tty),
	)

	poller := dashboard.New(
		dashboard.NewHTTPSource(cfg.Dashboard.ServerURL, cfg.Dashboard.RequestTimeout),
		term,
		dashboard.Config{
			RefreshInterval: cfg.Dashboard.RefreshInterval,
			AgentsInterval:  cfg.Dashboard.AgentsInterval,
			PageSize:        cfg.Dashboard.PageSize,
			Retry: retry.Config{
				MaxRetries: cfg.Dashboard.Retries(),
				Delay:      cfg.Dashboard.RetryDelay,
				Multiplier: 1,
			},
		},
		log,
		dashboard.WithMetrics(m),
	)

	if opts.once {
		if onceErr := poller.RunOnce(ctx); onceErr != nil {
			return fmt.Errorf("refresh dashboard: %w", onceErr)
		}
		return nil
	}

	log.Info("Watching moltboard", infralogger.String("server", cfg.Dashboard.ServerURL))
	return poller.Run(ctx)
}

// serveMetrics exposes m on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log infralogger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", infralogger.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}
