package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned by WriteFile when the target exists and overwrite
// was not requested.
var ErrExists = errors.New("config file already exists")

// SearchPaths are tried in order when neither --config nor CHECKVPN_CONFIG
// names a file.
var SearchPaths = []string{"./checkvpn.yaml", "/etc/checkvpn/config.yaml"}

// Locate returns the config file to use. An explicit path, from the flag or
// the environment, must exist; the search paths are optional.
func Locate(explicit string) (string, error) {
	if explicit == "" {
		explicit, _ = lookup("CONFIG")
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, p := range SearchPaths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

// readFile decodes path on top of c, so keys missing from the file keep
// their current value.
func readFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config yaml %s: %w", path, err)
	}
	return nil
}

const fileHeader = "# checkvpn configuration\n# Durations accept Go syntax such as 30s or 2m.\n"

// WriteFile serialises c as YAML, creating parent directories.
func WriteFile(path string, c *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
