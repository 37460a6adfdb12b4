package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/checkvpn/internal/app"
	"github.com/MrSnakeDoc/checkvpn/internal/config"
)

// flags holds the raw command line values. Only flags the user actually
// set end up in config.Overrides.
type flags struct {
	configPath string
	interval   string
	isp        string
	actionType string
	actionArg  string
	dryRun     bool
	runOnce    bool
	exitOnErr  bool
	verbosity  int

	endpoints      []string
	ports          string
	connectTimeout string
	connectRetries uint

	disableIPAPI      bool
	disableIfconfigCo bool
	providerURLs      []string
	customJSONServer  string
	customJSONKey     string
	providerRetries   uint

	enableMetrics bool
	metricsAddr   string
}

func (f *flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&f.configPath, "config", "", "configuration file (default: $CHECKVPN_CONFIG, ./checkvpn.yaml, /etc/checkvpn/config.yaml)")
	pf.StringVar(&f.interval, "interval", "", "time between checks, e.g. 60s or 60")
	pf.StringVarP(&f.isp, "isp-to-check", "i", "", "ISP name that means the VPN is down")
	pf.StringVarP(&f.actionType, "vpn-lost-action-type", "t", "", "reboot, restart-unit or command")
	pf.StringVarP(&f.actionArg, "vpn-lost-action-arg", "a", "", "unit name or shell command for the action")
	pf.BoolVar(&f.dryRun, "dry-run", false, "log the action instead of running it")
	pf.BoolVar(&f.exitOnErr, "exit-on-error", false, "exit when connectivity or identity checks fail")
	pf.CountVarP(&f.verbosity, "verbose", "v", "raise log verbosity (-v, -vv)")

	pf.StringSliceVar(&f.endpoints, "connectivity-endpoint", nil, "host or host:port to probe (repeatable, comma separated)")
	pf.StringVar(&f.ports, "connectivity-ports", "", "ports tried for endpoints without one, e.g. 443,53,80")
	pf.StringVar(&f.connectTimeout, "connectivity-timeout", "", "TCP connect timeout, e.g. 2s or 2")
	pf.UintVar(&f.connectRetries, "connectivity-retries", 0, "connect attempts per address")

	pf.BoolVar(&f.disableIPAPI, "disable-ip-api", false, "do not query ip-api.com")
	pf.BoolVar(&f.disableIfconfigCo, "disable-ifconfig-co", false, "do not query ifconfig.co")
	pf.StringSliceVar(&f.providerURLs, "provider-url", nil, "extra JSON provider URL queried first (repeatable)")
	pf.StringVar(&f.customJSONServer, "custom-json-server", "", "JSON endpoint queried after --provider-url")
	pf.StringVar(&f.customJSONKey, "custom-json-key", "", "field holding the ISP name in the custom JSON response")
	pf.UintVar(&f.providerRetries, "provider-retries", 0, "attempts per identity provider")

	pf.BoolVar(&f.enableMetrics, "enable-metrics", false, "serve /health, /metrics, /status and /check")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "listen address for the HTTP endpoints")

	cmd.Flags().BoolVar(&f.runOnce, "run-once", false, "run a single cycle and exit")
}

func (f *flags) options(cmd *cobra.Command) (app.Options, error) {
	o, err := f.overrides(cmd.Flags())
	if err != nil {
		return app.Options{}, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	return app.Options{
		ConfigPath: f.configPath,
		Overrides:  o,
		Verbosity:  f.verbosity,
	}, nil
}

func (f *flags) overrides(fs *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides
	var errs error

	set := fs.Changed

	if set("interval") {
		d, err := config.ParseDuration(f.interval)
		errs = multierr.Append(errs, flagErr("interval", err))
		o.Interval = &d
	}
	if set("isp-to-check") {
		o.WatchedISP = &f.isp
	}
	if set("vpn-lost-action-type") {
		o.ActionType = &f.actionType
	}
	if set("vpn-lost-action-arg") {
		o.ActionArg = &f.actionArg
	}
	if set("dry-run") {
		o.DryRun = &f.dryRun
	}
	if set("exit-on-error") {
		o.ExitOnError = &f.exitOnErr
	}

	if set("connectivity-endpoint") {
		o.Endpoints = f.endpoints
	}
	if set("connectivity-ports") {
		ports, err := config.ParsePorts(f.ports)
		errs = multierr.Append(errs, flagErr("connectivity-ports", err))
		o.Ports = ports
	}
	if set("connectivity-timeout") {
		d, err := config.ParseDuration(f.connectTimeout)
		errs = multierr.Append(errs, flagErr("connectivity-timeout", err))
		o.ConnectTimeout = &d
	}
	if set("connectivity-retries") {
		o.ConnectRetries = &f.connectRetries
	}

	o.DisableIPAPI = f.disableIPAPI
	o.DisableIfconfigCo = f.disableIfconfigCo
	if set("provider-url") {
		o.ProviderURLs = f.providerURLs
	}
	if set("custom-json-server") {
		o.CustomJSONServer = &f.customJSONServer
	}
	if set("custom-json-key") {
		o.CustomJSONKey = &f.customJSONKey
	}
	if set("provider-retries") {
		o.ProviderRetries = &f.providerRetries
	}

	if set("enable-metrics") {
		o.MetricsEnabled = &f.enableMetrics
	}
	if set("metrics-addr") {
		o.MetricsAddr = &f.metricsAddr
	}

	return o, errs
}

func flagErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("--%s: %w", name, err)
}
