package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const envPrefix = "CHECKVPN_"

// applyEnv overlays CHECKVPN_* variables. Unset variables leave the field
// alone; unparsable ones are reported together.
func applyEnv(c *Config) error {
	var errs error
	collect := func(err error) { errs = multierr.Append(errs, err) }

	collect(mustDuration("INTERVAL", &c.Interval))
	getenv("ISP_TO_CHECK", &c.WatchedISP)
	getenv("ACTION_TYPE", &c.ActionType)
	getenv("ACTION_ARG", &c.ActionArg)
	collect(mustBool("DRY_RUN", &c.DryRun))
	collect(mustBool("EXIT_ON_ERROR", &c.ExitOnError))

	getenvSlice("ENDPOINTS", &c.Connectivity.Endpoints)
	collect(getenvPorts("PORTS", &c.Connectivity.Ports))
	collect(mustDuration("CONNECT_TIMEOUT", &c.Connectivity.Timeout))
	collect(getenvUint("CONNECT_RETRIES", &c.Connectivity.Retries))

	getenvSlice("PROVIDER_URLS", &c.Providers.URLs)
	getenv("CUSTOM_JSON_SERVER", &c.Providers.CustomJSONServer)
	getenv("CUSTOM_JSON_KEY", &c.Providers.CustomJSONKey)
	collect(mustBool("ENABLE_IP_API", &c.Providers.EnableIPAPI))
	collect(mustBool("ENABLE_IFCONFIG_CO", &c.Providers.EnableIfconfigCo))
	collect(getenvUint("PROVIDER_RETRIES", &c.Providers.Retries))
	collect(mustDuration("HTTP_TIMEOUT", &c.Providers.HTTPTimeout))
	collect(getenvInt64("MAX_RESPONSE_BYTES", &c.Providers.MaxResponseBytes))

	collect(mustBool("METRICS_ENABLED", &c.Metrics.Enabled))
	getenv("METRICS_ADDR", &c.Metrics.Addr)
	getenvSlice("ALLOWED_CIDRS", &c.Metrics.AllowedCIDRs)
	collect(mustBool("TRUST_PROXY", &c.Metrics.TrustProxy))

	getenv("LOG_LEVEL", &c.LogLevel)
	collect(mustBool("PRETTY_LOG", &c.PrettyLog))
	collect(mustDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout))

	return errs
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// helpers
func getenv(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func getenvSlice(key string, dst *[]string) {
	if v, ok := lookup(key); ok {
		*dst = splitAndTrim(v)
	}
}

func getenvUint(key string, dst *uint) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%s%s: invalid count %q", envPrefix, key, v)
	}
	*dst = uint(n)
	return nil
}

func getenvInt64(key string, dst *int64) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s%s: invalid integer %q", envPrefix, key, v)
	}
	*dst = n
	return nil
}

func mustBool(key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: invalid boolean %q", envPrefix, key, v)
	}
	*dst = b
	return nil
}

func mustDuration(key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

func getenvPorts(key string, dst *[]uint16) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	ports, err := ParsePorts(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = ports
	return nil
}

// ParseDuration accepts Go durations ("90s", "2m") and bare integers,
// which are read as seconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseUint(v, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

// ParsePorts reads a comma separated port list.
func ParsePorts(v string) ([]uint16, error) {
	parts := splitAndTrim(v)
	ports := make([]uint16, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, uint16(n))
	}
	return ports, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
