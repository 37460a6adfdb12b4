package config

import "time"

// Overrides carries command line values. Nil fields were not passed and
// leave the lower layers untouched.
type Overrides struct {
	Interval    *time.Duration
	WatchedISP  *string
	ActionType  *string
	ActionArg   *string
	DryRun      *bool
	ExitOnError *bool

	Endpoints      []string
	Ports          []uint16
	ConnectTimeout *time.Duration
	ConnectRetries *uint

	ProviderURLs      []string
	CustomJSONServer  *string
	CustomJSONKey     *string
	DisableIPAPI      bool
	DisableIfconfigCo bool
	ProviderRetries   *uint

	MetricsEnabled *bool
	MetricsAddr    *string

	LogLevel *string
}

func (o Overrides) apply(c *Config) {
	setIf(&c.Interval, o.Interval)
	setIf(&c.WatchedISP, o.WatchedISP)
	setIf(&c.ActionType, o.ActionType)
	setIf(&c.ActionArg, o.ActionArg)
	setIf(&c.DryRun, o.DryRun)
	setIf(&c.ExitOnError, o.ExitOnError)

	if o.Endpoints != nil {
		c.Connectivity.Endpoints = splitEach(o.Endpoints)
	}
	if o.Ports != nil {
		c.Connectivity.Ports = o.Ports
	}
	setIf(&c.Connectivity.Timeout, o.ConnectTimeout)
	setIf(&c.Connectivity.Retries, o.ConnectRetries)

	if o.ProviderURLs != nil {
		c.Providers.URLs = splitEach(o.ProviderURLs)
	}
	setIf(&c.Providers.CustomJSONServer, o.CustomJSONServer)
	setIf(&c.Providers.CustomJSONKey, o.CustomJSONKey)
	if o.DisableIPAPI {
		c.Providers.EnableIPAPI = false
	}
	if o.DisableIfconfigCo {
		c.Providers.EnableIfconfigCo = false
	}
	setIf(&c.Providers.Retries, o.ProviderRetries)

	setIf(&c.Metrics.Enabled, o.MetricsEnabled)
	setIf(&c.Metrics.Addr, o.MetricsAddr)

	setIf(&c.LogLevel, o.LogLevel)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// splitEach lets repeated flags also carry comma separated values.
func splitEach(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, splitAndTrim(v)...)
	}
	return out
}
