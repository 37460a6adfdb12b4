package config

import (
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/action"
	"github.com/MrSnakeDoc/checkvpn/internal/identity"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/probe"
)

const (
	DefaultInterval   = 60 * time.Second
	DefaultWatchedISP = "Hutchison 3G UK Ltd"
	DefaultActionArg  = "/sbin/shutdown -r now"
)

type Config struct {
	Interval    time.Duration `yaml:"interval"`
	WatchedISP  string        `yaml:"isp_to_check"`
	ActionType  string        `yaml:"vpn_lost_action_type"` // reboot | restart-unit | command
	ActionArg   string        `yaml:"vpn_lost_action_arg"`
	DryRun      bool          `yaml:"dry_run"`
	ExitOnError bool          `yaml:"exit_on_error"`

	Connectivity Connectivity `yaml:"connectivity"`
	Providers    Providers    `yaml:"providers"`
	Metrics      Metrics      `yaml:"metrics"`

	LogLevel        string        `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog       bool          `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Path is the file this config was read from, empty when only defaults,
	// environment and flags were used.
	Path string `yaml:"-"`
}

type Connectivity struct {
	Endpoints []string      `yaml:"endpoints"`
	Ports     []uint16      `yaml:"ports"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   uint          `yaml:"retries"`
}

type Providers struct {
	URLs             []string      `yaml:"urls,omitempty"`
	CustomJSONServer string        `yaml:"custom_json_server,omitempty"`
	CustomJSONKey    string        `yaml:"custom_json_key,omitempty"`
	EnableIPAPI      bool          `yaml:"enable_ip_api"`
	EnableIfconfigCo bool          `yaml:"enable_ifconfig_co"`
	Retries          uint          `yaml:"retries"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
}

type Metrics struct {
	Enabled      bool     `yaml:"enabled"`
	Addr         string   `yaml:"addr"`
	AllowedCIDRs []string `yaml:"allowed_cidrs,omitempty"` // restricts /status and /check, empty = everyone
	TrustProxy   bool     `yaml:"trust_proxy"`
	// CheckInterval is the minimum spacing of POST /check per client.
	CheckInterval time.Duration `yaml:"check_interval"`
	CheckBurst    int           `yaml:"check_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interval:   DefaultInterval,
		WatchedISP: DefaultWatchedISP,
		ActionType: string(action.Reboot),
		ActionArg:  DefaultActionArg,

		Connectivity: Connectivity{
			Endpoints: []string{"8.8.8.8", "google.com"},
			Ports:     append([]uint16(nil), probe.DefaultPorts...),
			Timeout:   probe.DefaultTimeout,
			Retries:   probe.DefaultRetries,
		},
		Providers: Providers{
			EnableIPAPI:      true,
			EnableIfconfigCo: true,
			Retries:          identity.DefaultAttempts,
			HTTPTimeout:      identity.DefaultHTTPTimeout,
			MaxResponseBytes: identity.DefaultMaxBodyBytes,
		},
		Metrics: Metrics{
			Addr:          "0.0.0.0:9090",
			CheckInterval: 10 * time.Second,
			CheckBurst:    3,
		},

		LogLevel:        "info",
		PrettyLog:       false,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c *Config) ProbeConfig() probe.Config {
	return probe.Config{
		Endpoints: append([]string(nil), c.Connectivity.Endpoints...),
		Ports:     append([]uint16(nil), c.Connectivity.Ports...),
		Timeout:   c.Connectivity.Timeout,
		Retries:   c.Connectivity.Retries,
	}
}

func (c *Config) ChainOptions() identity.ChainOptions {
	return identity.ChainOptions{
		ProviderURLs:      append([]string(nil), c.Providers.URLs...),
		CustomJSONServer:  c.Providers.CustomJSONServer,
		CustomJSONKey:     c.Providers.CustomJSONKey,
		DisableIPAPI:      !c.Providers.EnableIPAPI,
		DisableIfconfigCo: !c.Providers.EnableIfconfigCo,
	}
}

func (c *Config) Action(log logger.Logger) action.Action {
	return action.Parse(c.ActionType, c.ActionArg, log)
}
