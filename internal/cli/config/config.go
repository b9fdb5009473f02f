package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultURL = "http://localhost:8080"

	// PathEnv overrides the config file location.
	PathEnv = "EXCELCTL_CONFIG"
	// ServerEnv and TokenEnv override the stored values for one invocation
	// without touching the file.
	ServerEnv = "EXCELCTL_SERVER"
	TokenEnv  = "EXCELCTL_TOKEN"
)

// Config is what excelctl remembers between runs.
type Config struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	Email     string `json:"email,omitempty"`
}

func Path() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "excelctl", "config.json"), nil
}

// Load reads the stored config. A missing file is a first run, not an error.
func Load() (*Config, error) {
	cfg := &Config{}
	p, err := Path()
	if err == nil {
		data, readErr := os.ReadFile(p)
		switch {
		case readErr == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", p, err)
			}
		case !errors.Is(readErr, os.ErrNotExist):
			return nil, readErr
		}
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultURL
	}
	return cfg, nil
}

// ApplyEnv overlays EXCELCTL_SERVER and EXCELCTL_TOKEN, for scripted use.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(ServerEnv)); v != "" {
		c.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		c.Token = v
	}
}

// Save writes the config through a temp file so a crash never leaves a
// truncated token behind. The file is readable by the owner only.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Clear forgets the stored session. Clearing twice is fine.
func Clear() error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Config) HasToken() bool {
	return c.Token != ""
}
