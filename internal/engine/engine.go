package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/action"
	"github.com/MrSnakeDoc/checkvpn/internal/identity"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/probe"
)

type Outcome int

const (
	NoActionNetworkDown Outcome = iota
	NoActionIdentityUnknown
	NoActionIdentityMatchesExpected
	ActionTriggered
	ActionTriggeredDryRun
)

func (o Outcome) String() string {
	switch o {
	case NoActionNetworkDown:
		return "network_down"
	case NoActionIdentityUnknown:
		return "identity_unknown"
	case NoActionIdentityMatchesExpected:
		return "vpn_active"
	case ActionTriggered:
		return "action_triggered"
	case ActionTriggeredDryRun:
		return "action_triggered_dry_run"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Outcomes lists every value, for pre-registering metric labels.
var Outcomes = []Outcome{
	NoActionNetworkDown,
	NoActionIdentityUnknown,
	NoActionIdentityMatchesExpected,
	ActionTriggered,
	ActionTriggeredDryRun,
}

type Prober interface {
	IsOnline(ctx context.Context, cfg probe.Config) (bool, error)
}

type Resolver interface {
	Resolve(ctx context.Context) (identity.Identity, error)
}

// Policy is everything one cycle needs besides the injected collaborators.
type Policy struct {
	Probe      probe.Config
	Resolver   Resolver
	WatchedISP string
	Action     action.Action
	DryRun     bool
}

// Result describes a finished cycle.
type Result struct {
	Outcome       Outcome
	Reachable     bool
	Identity      identity.Identity
	ProbeDuration time.Duration
	Duration      time.Duration
}

type Engine struct {
	prober     Prober
	dispatcher action.Dispatcher
	log        logger.Logger
}

func New(prober Prober, dispatcher action.Dispatcher, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{prober: prober, dispatcher: dispatcher, log: log}
}

// Decide runs one cycle: probe, resolve, compare and maybe dispatch.
// Failures come back next to a NoAction outcome; nothing here exits.
func (e *Engine) Decide(ctx context.Context, p Policy) (res Result, err error) {
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	online, err := e.prober.IsOnline(ctx, p.Probe)
	res.ProbeDuration = time.Since(start)
	if err != nil {
		e.log.Error("connectivity probe failed", logger.Error(err))
		res.Outcome = NoActionNetworkDown
		return res, fmt.Errorf("probe connectivity: %w", err)
	}
	res.Reachable = online
	if !online {
		e.log.Warn("internet down, skipping identity check",
			logger.Strings("endpoints", p.Probe.Endpoints))
		res.Outcome = NoActionNetworkDown
		return res, nil
	}

	id, err := p.Resolver.Resolve(ctx)
	if err != nil {
		fields := []logger.Field{logger.Error(err)}
		var exhausted *identity.ChainExhaustedError
		if errors.As(err, &exhausted) {
			fields = append(fields, logger.String("failures", exhausted.Summary()))
		}
		e.log.Error("identity resolution failed", fields...)
		res.Outcome = NoActionIdentityUnknown
		return res, fmt.Errorf("resolve identity: %w", err)
	}
	res.Identity = id

	if id.ISP != p.WatchedISP {
		e.log.Info("VPN active",
			logger.String("isp", id.ISP),
			logger.String("provider", id.Provider))
		res.Outcome = NoActionIdentityMatchesExpected
		return res, nil
	}

	e.log.Warn("VPN lost, action triggered",
		logger.String("isp", id.ISP),
		logger.String("provider", id.Provider),
		logger.String("action", p.Action.String()),
		logger.Bool("dry_run", p.DryRun))
	if p.DryRun {
		res.Outcome = ActionTriggeredDryRun
	} else {
		res.Outcome = ActionTriggered
	}
	if err := e.dispatcher.Execute(ctx, p.Action, p.DryRun); err != nil {
		e.log.Error("recovery action failed",
			logger.String("action", p.Action.String()),
			logger.Error(err))
		return res, fmt.Errorf("dispatch %s: %w", p.Action, err)
	}
	return res, nil
}
