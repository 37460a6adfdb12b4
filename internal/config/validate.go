package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/checkvpn/internal/action"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/utils"
)

// Validate reports every problem at once; use multierr.Errors to list them.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Interval <= 0 {
		add("interval must be greater than zero")
	}
	if strings.TrimSpace(c.WatchedISP) == "" {
		add("isp_to_check must not be empty")
	}

	kind := action.Kind(strings.ToLower(strings.TrimSpace(c.ActionType)))
	switch {
	case !kind.Valid():
		add("vpn_lost_action_type %q is not one of %s", c.ActionType, action.KindNames())
	case kind.NeedsArg() && strings.TrimSpace(c.ActionArg) == "":
		add("vpn_lost_action_arg is required for %s", kind)
	}

	if len(c.Connectivity.Endpoints) == 0 {
		add("connectivity.endpoints must list at least one endpoint")
	}
	for i, ep := range c.Connectivity.Endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			add("connectivity.endpoints[%d] is blank", i)
			continue
		}
		if host, port, err := net.SplitHostPort(ep); err == nil {
			if n, perr := strconv.ParseUint(port, 10, 16); perr != nil || n == 0 {
				add("connectivity.endpoints[%d] %q has an invalid port", i, ep)
			} else if host == "" {
				add("connectivity.endpoints[%d] %q has no host", i, ep)
			}
		}
	}
	if len(c.Connectivity.Ports) == 0 {
		add("connectivity.ports must list at least one port")
	}
	for i, p := range c.Connectivity.Ports {
		if p == 0 {
			add("connectivity.ports[%d] must be between 1 and 65535", i)
		}
	}
	if c.Connectivity.Timeout <= 0 {
		add("connectivity.timeout must be greater than zero")
	}
	if c.Connectivity.Retries < 1 {
		add("connectivity.retries must be at least 1")
	}

	if c.Providers.Retries < 1 {
		add("providers.retries must be at least 1")
	}
	if c.Providers.HTTPTimeout <= 0 {
		add("providers.http_timeout must be greater than zero")
	}
	if c.Providers.MaxResponseBytes <= 0 {
		add("providers.max_response_bytes must be greater than zero")
	}
	for _, u := range c.Providers.URLs {
		if err := checkHTTPURL(u); err != nil {
			add("providers.urls: %v", err)
		}
	}
	if c.Providers.CustomJSONServer != "" {
		if err := checkHTTPURL(c.Providers.CustomJSONServer); err != nil {
			add("providers.custom_json_server: %v", err)
		}
	}

	if len(c.Providers.URLs) == 0 && c.Providers.CustomJSONServer == "" &&
		!c.Providers.EnableIPAPI && !c.Providers.EnableIfconfigCo {
		add("providers: every identity provider is disabled")
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			add("metrics.addr %q must be host:port", c.Metrics.Addr)
		}
	}
	if _, invalid := utils.NewIPMatcher(c.Metrics.AllowedCIDRs); len(invalid) > 0 {
		add("metrics.allowed_cidrs has invalid entries: %s", strings.Join(invalid, ", "))
	}
	if c.Metrics.CheckInterval <= 0 {
		add("metrics.check_interval must be greater than zero")
	}
	if c.Metrics.CheckBurst < 1 {
		add("metrics.check_burst must be at least 1")
	}

	if !logger.ValidLevel(c.LogLevel) {
		add("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return errs
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return errors.New(raw + " has no host")
	}
	return nil
}
