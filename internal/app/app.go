package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/action"
	"github.com/MrSnakeDoc/checkvpn/internal/config"
	"github.com/MrSnakeDoc/checkvpn/internal/engine"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/identity"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/metrics"
	"github.com/MrSnakeDoc/checkvpn/internal/probe"
	"github.com/MrSnakeDoc/checkvpn/internal/scheduler"
	"github.com/MrSnakeDoc/checkvpn/internal/status"
	"github.com/MrSnakeDoc/checkvpn/internal/version"
)

// Options are the command line inputs the daemon and the single-shot mode
// share.
type Options struct {
	ConfigPath string
	Overrides  config.Overrides
	Verbosity  int
}

type App struct {
	opts    Options
	cfg     *config.Config
	logger  logger.Logger
	metrics *metrics.Metrics
	tracker *status.Tracker
	watcher *scheduler.Watcher
	server  *httpserver.Server
}

// New loads the configuration and wires every component. Configuration
// errors wrap config.ErrInvalid.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return nil, err
	}

	loggerClient := logger.New(logger.LevelForVerbosity(cfg.LogLevel, opts.Verbosity), cfg.PrettyLog)
	if cfg.Path != "" {
		loggerClient.Info("configuration loaded", logger.String("path", cfg.Path))
	} else {
		loggerClient.Info("no configuration file found, using defaults and environment")
	}

	a := &App{
		opts:    opts,
		cfg:     cfg,
		logger:  loggerClient,
		metrics: metrics.New(),
		tracker: status.NewTracker(),
	}

	eng := engine.New(
		probe.New(probe.WithLogger(loggerClient)),
		action.NewSystemDispatcher(loggerClient),
		loggerClient,
	)

	a.watcher = scheduler.NewWatcher(scheduler.Options{
		Decider:  eng,
		Tracker:  a.tracker,
		Recorder: a.metrics,
		Logger:   loggerClient,
		Settings: a.settings(cfg),
		Reload:   a.reload,
	})

	if cfg.Metrics.Enabled {
		a.server = httpserver.New(cfg.Metrics.Addr, deps.Deps{
			Logger:        loggerClient,
			StartTime:     time.Now(),
			Version:       version.Version,
			Commit:        version.Commit,
			BuildDate:     version.BuildDate,
			GoVersion:     version.GoVersion,
			Tracker:       a.tracker,
			Metrics:       a.metrics.Handler(),
			Trigger:       a.watcher.Trigger,
			AllowedCIDRs:  cfg.Metrics.AllowedCIDRs,
			TrustProxy:    cfg.Metrics.TrustProxy,
			CheckInterval: cfg.Metrics.CheckInterval,
			CheckBurst:    cfg.Metrics.CheckBurst,
		})
	}

	return a, nil
}

// settings turns a validated configuration into what the loop reads. The
// identity chain is rebuilt so provider changes apply on reload.
func (a *App) settings(cfg *config.Config) scheduler.Settings {
	fetcher := identity.NewFetcher(identity.FetcherOptions{
		Client:       identity.NewHTTPClient(cfg.Providers.HTTPTimeout),
		Attempts:     cfg.Providers.Retries,
		MaxBodyBytes: cfg.Providers.MaxResponseBytes,
		UserAgent:    identity.UserAgent,
		Logger:       a.logger,
	})
	chain := identity.BuildChain(cfg.ChainOptions(), fetcher,
		identity.WithChainLogger(a.logger),
		identity.WithFailureHook(a.metrics.ProviderFailed),
	)

	a.logger.Debug("identity provider chain", logger.Strings("providers", chain.Names()))

	return scheduler.Settings{
		Policy: engine.Policy{
			Probe:      cfg.ProbeConfig(),
			Resolver:   chain,
			WatchedISP: cfg.WatchedISP,
			Action:     cfg.Action(a.logger),
			DryRun:     cfg.DryRun,
		},
		Interval:    cfg.Interval,
		ExitOnError: cfg.ExitOnError,
	}
}

// reload re-reads the file the daemon started from and re-applies the
// environment and command line on top of it.
func (a *App) reload() (scheduler.Settings, error) {
	cfg, err := config.Load(a.cfg.Path, a.opts.Overrides)
	if err != nil {
		return scheduler.Settings{}, err
	}
	if restartNeeded(a.cfg, cfg) {
		a.logger.Warn("logging and metrics settings only apply after a restart")
	}
	return a.settings(cfg), nil
}

func restartNeeded(old, next *config.Config) bool {
	return old.LogLevel != next.LogLevel ||
		old.PrettyLog != next.PrettyLog ||
		old.Metrics.Enabled != next.Metrics.Enabled ||
		old.Metrics.Addr != next.Metrics.Addr ||
		old.Metrics.TrustProxy != next.Metrics.TrustProxy ||
		!slices.Equal(old.Metrics.AllowedCIDRs, next.Metrics.AllowedCIDRs)
}

// Run starts the loop and, when enabled, the HTTP server, and blocks until
// a signal arrives or the loop stops on a failed cycle.
func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Info("starting checkvpn",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("watched_isp", a.cfg.WatchedISP),
		logger.Duration("interval", a.cfg.Interval),
		logger.String("action", a.cfg.Action(a.logger).String()),
		logger.Bool("dry_run", a.cfg.DryRun))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Path != "" {
		changes, err := config.Watch(ctx, a.cfg.Path, a.logger)
		if err != nil {
			a.logger.Warn("config hot reload disabled", logger.Error(err))
		} else {
			a.watcher.SetReloads(changes)
		}
	}

	errCh := make(chan error, 2)
	if a.server != nil {
		ln, err := a.server.Listen()
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.cfg.Metrics.Addr, err)
		}
		a.metrics.SetUp(true)
		go func() {
			if err := a.server.Serve(ln); err != nil {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	go func() {
		errCh <- a.watcher.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case runErr = <-errCh:
		if runErr != nil {
			a.logger.Error("stopping", logger.Error(runErr))
		}
	}

	a.watcher.Stop()

	if a.server != nil {
		a.metrics.SetUp(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	if runErr == nil {
		a.logger.Info("checkvpn stopped cleanly")
	}
	return runErr
}

// RunOnce runs a single cycle. Failed outcomes come back as a
// *scheduler.CycleError so ExitCode can map them.
func (a *App) RunOnce() error {
	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.watcher.RunOnce(ctx)
	a.logger.Info("check finished",
		logger.String("outcome", res.Outcome.String()),
		logger.String("isp", res.Identity.ISP),
		logger.Duration("duration", res.Duration))
	return err
}
