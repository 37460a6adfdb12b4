package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

// isolate points the file search at a scratch directory so a checkvpn.yaml
// in the working tree cannot leak into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := SearchPaths
	SearchPaths = []string{filepath.Join(dir, "checkvpn.yaml")}
	t.Cleanup(func() { SearchPaths = old })
	t.Setenv("CHECKVPN_CONFIG", "")
	return dir
}

func writeYAML(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "checkvpn.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("expected no config file, got %q", cfg.Path)
	}
	if cfg.Interval != 60*time.Second {
		t.Errorf("Interval = %v, want 60s", cfg.Interval)
	}
	if cfg.WatchedISP != "Hutchison 3G UK Ltd" {
		t.Errorf("WatchedISP = %q", cfg.WatchedISP)
	}
	if !reflect.DeepEqual(cfg.Connectivity.Ports, []uint16{443, 53, 80}) {
		t.Errorf("Ports = %v", cfg.Connectivity.Ports)
	}
	if !reflect.DeepEqual(cfg.Connectivity.Endpoints, []string{"8.8.8.8", "google.com"}) {
		t.Errorf("Endpoints = %v", cfg.Connectivity.Endpoints)
	}
	if cfg.Providers.MaxResponseBytes != 5*1024*1024 {
		t.Errorf("MaxResponseBytes = %d", cfg.Providers.MaxResponseBytes)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := isolate(t)
	writeYAML(t, dir, `
interval: 30s
isp_to_check: From File ISP
vpn_lost_action_type: restart-unit
vpn_lost_action_arg: openvpn-client@home.service
connectivity:
  endpoints: [1.1.1.1]
  ports: [443]
providers:
  enable_ifconfig_co: false
`)

	t.Setenv("CHECKVPN_ISP_TO_CHECK", "From Env ISP")
	t.Setenv("CHECKVPN_CONNECT_RETRIES", "4")
	t.Setenv("CHECKVPN_PORTS", "443, 8443")

	interval := 15 * time.Second
	cfg, err := Load("", Overrides{
		Interval:  &interval,
		Endpoints: []string{"9.9.9.9,example.com"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Path == "" {
		t.Error("expected the search path to be picked up")
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("flag should win: Interval = %v", cfg.Interval)
	}
	if cfg.WatchedISP != "From Env ISP" {
		t.Errorf("env should win over file: WatchedISP = %q", cfg.WatchedISP)
	}
	if cfg.ActionType != "restart-unit" || cfg.ActionArg != "openvpn-client@home.service" {
		t.Errorf("file values lost: %q %q", cfg.ActionType, cfg.ActionArg)
	}
	if !reflect.DeepEqual(cfg.Connectivity.Endpoints, []string{"9.9.9.9", "example.com"}) {
		t.Errorf("Endpoints = %v", cfg.Connectivity.Endpoints)
	}
	if !reflect.DeepEqual(cfg.Connectivity.Ports, []uint16{443, 8443}) {
		t.Errorf("Ports = %v", cfg.Connectivity.Ports)
	}
	if cfg.Connectivity.Retries != 4 {
		t.Errorf("Retries = %d", cfg.Connectivity.Retries)
	}
	if cfg.Connectivity.Timeout != 2*time.Second {
		t.Errorf("untouched default lost: Timeout = %v", cfg.Connectivity.Timeout)
	}
	if cfg.Providers.EnableIfconfigCo || !cfg.Providers.EnableIPAPI {
		t.Errorf("provider toggles = ip-api %v, ifconfig.co %v", cfg.Providers.EnableIPAPI, cfg.Providers.EnableIfconfigCo)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Overrides{})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadEnvConfigPath(t *testing.T) {
	isolate(t)
	other := t.TempDir()
	path := writeYAML(t, other, "isp_to_check: Env Path ISP\n")
	t.Setenv("CHECKVPN_CONFIG", path)

	cfg, err := Load("", Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WatchedISP != "Env Path ISP" || cfg.Path != path {
		t.Errorf("got ISP %q from %q", cfg.WatchedISP, cfg.Path)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)
	writeYAML(t, dir, "intervall: 10s\n")

	if _, err := Load("", Overrides{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown key, got %v", err)
	}
}

func TestLoadBadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CHECKVPN_DRY_RUN", "perhaps")
	t.Setenv("CHECKVPN_INTERVAL", "soon")

	_, err := Load("", Overrides{})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	for _, want := range []string{"CHECKVPN_DRY_RUN", "CHECKVPN_INTERVAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "every problem reported",
			mutate: func(c *Config) {
				c.Interval = 0
				c.WatchedISP = "  "
				c.Connectivity.Endpoints = []string{"ok", ""}
				c.Connectivity.Ports = []uint16{443, 0}
				c.Connectivity.Retries = 0
			},
			wantErr: []string{"interval", "isp_to_check", "endpoints[1]", "ports[1]", "connectivity.retries"},
		},
		{
			name: "explicit endpoint ports must be valid",
			mutate: func(c *Config) {
				c.Connectivity.Endpoints = []string{"vpn.example:443", "[2001:db8::1]:53", "host:99999", "host:http", ":443"}
			},
			wantErr: []string{"endpoints[2]", "endpoints[3]", "endpoints[4]"},
		},
		{
			name: "unknown action type",
			mutate: func(c *Config) {
				c.ActionType = "explode"
			},
			wantErr: []string{"vpn_lost_action_type"},
		},
		{
			name: "restart-unit needs a unit",
			mutate: func(c *Config) {
				c.ActionType = "restart-unit"
				c.ActionArg = ""
			},
			wantErr: []string{"vpn_lost_action_arg"},
		},
		{
			name: "reboot needs no argument",
			mutate: func(c *Config) {
				c.ActionArg = ""
			},
		},
		{
			name: "provider urls must be http",
			mutate: func(c *Config) {
				c.Providers.URLs = []string{"https://ok.example/json", "ftp://nope.example"}
				c.Providers.CustomJSONServer = "not a url"
			},
			wantErr: []string{"providers.urls", "custom_json_server"},
		},
		{
			name: "no identity provider left",
			mutate: func(c *Config) {
				c.Providers.EnableIPAPI = false
				c.Providers.EnableIfconfigCo = false
			},
			wantErr: []string{"every identity provider is disabled"},
		},
		{
			name: "bad cidr and level",
			mutate: func(c *Config) {
				c.Metrics.AllowedCIDRs = []string{"10.0.0.0/8", "nope"}
				c.LogLevel = "chatty"
			},
			wantErr: []string{"allowed_cidrs", "log_level"},
		},
		{
			name: "metrics addr checked when enabled",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Addr = "9090"
			},
			wantErr: []string{"metrics.addr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected an error")
			}
			if got := len(multierr.Errors(err)); got != len(tt.wantErr) {
				t.Errorf("got %d errors, want %d: %v", got, len(tt.wantErr), err)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should mention %q", err, want)
				}
			}
		})
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.WatchedISP = "Written ISP"
	cfg.Connectivity.Ports = []uint16{443, 53}
	cfg.Interval = 90 * time.Second

	if err := WriteFile(path, cfg, false); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := WriteFile(path, cfg, false); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on second write, got %v", err)
	}

	loaded, err := Load(path, Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	loaded.Path = ""
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"60", 60 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a, "b" ,, 'c' `)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitAndTrim() = %v, want %v", got, want)
	}
	if splitAndTrim("") != nil {
		t.Error("expected nil for empty input")
	}
}
