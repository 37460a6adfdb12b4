package app

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/action"
	"github.com/MrSnakeDoc/checkvpn/internal/config"
	"github.com/MrSnakeDoc/checkvpn/internal/identity"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

const (
	PlaceholderISP    = "Your ISP Here"
	DefaultInitUnit   = "openvpn-client@myvpn.service"
	detectTimeout     = 20 * time.Second
	DefaultInitTarget = "./checkvpn.yaml"
)

// InitOptions drives the starter configuration writer.
type InitOptions struct {
	Path      string
	Force     bool
	NoFetch   bool
	Logger    logger.Logger
	Providers identity.ChainOptions // empty means ip-api then ifconfig.co
}

// StarterConfig is the configuration init writes: the defaults, restarting
// a VPN unit instead of rebooting, and watching isp.
func StarterConfig(isp string) *config.Config {
	cfg := config.Default()
	cfg.WatchedISP = isp
	cfg.ActionType = string(action.RestartUnit)
	cfg.ActionArg = DefaultInitUnit
	cfg.Connectivity.Ports = []uint16{443, 53}
	return cfg
}

// Init detects the current ISP, unless told not to, and writes a starter
// configuration. It returns the path written and the ISP used.
func Init(ctx context.Context, opts InitOptions) (string, string, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	path := opts.Path
	if path == "" {
		path = DefaultInitTarget
	}

	isp := PlaceholderISP
	if !opts.NoFetch {
		isp = detectISP(ctx, opts.Providers, log)
	}

	if err := config.WriteFile(path, StarterConfig(isp), opts.Force); err != nil {
		return "", "", err
	}
	return path, isp, nil
}

func detectISP(ctx context.Context, providers identity.ChainOptions, log logger.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	f := identity.NewFetcher(identity.FetcherOptions{Logger: log})
	id, err := identity.BuildChain(providers, f, identity.WithChainLogger(log)).Resolve(ctx)
	if err != nil {
		log.Warn("ISP detection failed, writing a placeholder", logger.Error(err))
		return PlaceholderISP
	}
	log.Info("detected current ISP",
		logger.String("isp", id.ISP),
		logger.String("provider", id.Provider))
	return id.ISP
}
