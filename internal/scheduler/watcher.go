package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/engine"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/probe"
	"github.com/MrSnakeDoc/checkvpn/internal/status"
)

type Decider interface {
	Decide(ctx context.Context, p engine.Policy) (engine.Result, error)
}

// Recorder receives loop events; *metrics.Metrics implements it.
type Recorder interface {
	ObserveCycle(res engine.Result, finished time.Time)
	ManualTrigger()
	Reload(ok bool)
}

// Settings is the part of the configuration the loop reads every cycle.
type Settings struct {
	Policy      engine.Policy
	Interval    time.Duration
	ExitOnError bool
}

// Reloader rebuilds Settings after the configuration changed.
type Reloader func() (Settings, error)

type Options struct {
	Decider  Decider
	Tracker  *status.Tracker
	Recorder Recorder
	Logger   logger.Logger
	Settings Settings

	// Reload and Reloads are optional; both are needed for hot reload.
	Reload  Reloader
	Reloads <-chan struct{}
}

// Watcher runs check cycles one at a time: at start, on every tick, on a
// manual trigger and after a configuration reload.
type Watcher struct {
	decider  Decider
	tracker  *status.Tracker
	recorder Recorder
	logger   logger.Logger

	mu       sync.RWMutex
	settings Settings

	reload        Reloader
	reloads       <-chan struct{}
	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
}

func NewWatcher(opts Options) *Watcher {
	w := &Watcher{
		decider:       opts.Decider,
		tracker:       opts.Tracker,
		recorder:      opts.Recorder,
		logger:        opts.Logger,
		settings:      opts.Settings,
		reload:        opts.Reload,
		reloads:       opts.Reloads,
		manualTrigger: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
	if w.tracker == nil {
		w.tracker = status.NewTracker()
	}
	if w.recorder == nil {
		w.recorder = nopRecorder{}
	}
	if w.logger == nil {
		w.logger = logger.Nop()
	}
	return w
}

// SetReloads attaches the configuration change signal. Call it before Run.
func (w *Watcher) SetReloads(ch <-chan struct{}) { w.reloads = ch }

// Run blocks until ctx is done, Stop is called, or a cycle fails while
// exit-on-error is set, in which case the *CycleError is returned.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.tick(ctx); err != nil {
		return err
	}

	interval := w.Settings().Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case <-ticker.C:
		case <-w.manualTrigger:
			w.logger.Info("manual check triggered")
		case <-w.reloads:
			if !w.applyReload() {
				continue
			}
			if next := w.Settings().Interval; next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}

		if w.stopping(ctx) {
			return nil
		}
		if err := w.tick(ctx); err != nil {
			return err
		}
	}
}

// RunOnce runs a single cycle. Failing outcomes are always returned as a
// *CycleError, whatever the exit-on-error setting.
func (w *Watcher) RunOnce(ctx context.Context) (engine.Result, error) {
	res, err := w.cycle(ctx)
	if IsFailure(res.Outcome) || err != nil {
		return res, &CycleError{Outcome: res.Outcome, Err: err}
	}
	return res, nil
}

// Trigger queues a cycle. It returns false when one is already queued.
func (w *Watcher) Trigger() bool {
	select {
	case w.manualTrigger <- struct{}{}:
		w.recorder.ManualTrigger()
		return true
	default:
		return false
	}
}

// Stop ends Run before its next cycle. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Watcher) Settings() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

func (w *Watcher) Tracker() *status.Tracker { return w.tracker }

func (w *Watcher) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// tick runs a cycle and applies the exit-on-error policy.
func (w *Watcher) tick(ctx context.Context) error {
	res, err := w.cycle(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if w.Settings().ExitOnError && IsFailure(res.Outcome) {
		return &CycleError{Outcome: res.Outcome, Err: err}
	}
	return nil
}

func (w *Watcher) cycle(ctx context.Context) (engine.Result, error) {
	settings := w.Settings()
	res, err := w.decider.Decide(ctx, settings.Policy)
	finished := time.Now()

	w.tracker.Record(res, err, finished, settings.Policy)
	w.recorder.ObserveCycle(res, finished)
	w.logger.Debug("cycle finished",
		logger.String("outcome", res.Outcome.String()),
		logger.Duration("duration", res.Duration))
	return res, err
}

func (w *Watcher) applyReload() bool {
	if w.reload == nil {
		return false
	}
	next, err := w.reload()
	if err != nil {
		w.recorder.Reload(false)
		w.logger.Error("config reload rejected, keeping previous settings", logger.Error(err))
		return false
	}

	w.mu.Lock()
	w.settings = next
	w.mu.Unlock()

	w.recorder.Reload(true)
	w.logger.Info("config reloaded",
		logger.Duration("interval", next.Interval),
		logger.String("watched_isp", next.Policy.WatchedISP))
	return true
}

// IsFailure reports outcomes that count as a failed check for exit codes.
func IsFailure(o engine.Outcome) bool {
	return o == engine.NoActionNetworkDown || o == engine.NoActionIdentityUnknown
}

// CycleError ends the loop when exit-on-error is set.
type CycleError struct {
	Outcome engine.Outcome
	Err     error
}

func (e *CycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("check cycle ended with %s: %v", e.Outcome, e.Err)
	}
	return fmt.Sprintf("check cycle ended with %s", e.Outcome)
}

func (e *CycleError) Unwrap() error { return e.Err }

// DNSFailure reports whether the cycle stopped on name resolution.
func (e *CycleError) DNSFailure() bool {
	return errors.Is(e.Err, probe.ErrDNSResolve)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(engine.Result, time.Time) {}
func (nopRecorder) ManualTrigger()                        {}
func (nopRecorder) Reload(bool)                           {}
