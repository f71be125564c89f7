package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds user preferences
type Config struct {
	APIURL string `json:"api_url"`
	Theme  string `json:"theme"` // "light" or "dark"
	Debug  bool   `json:"debug"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		APIURL: "http://localhost:8001",
		Theme:  "dark",
	}
}

// ConfigDir returns the directory where config and session state live
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docterm"), nil
}

// ConfigFile returns the full path to the config file
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk, then layers environment
// overrides on top. A .env file in the working directory is honored
// the same way the backend's own tooling honors it.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigFile()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	_ = godotenv.Load()
	if v := os.Getenv("DOCTERM_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("DOCTERM_THEME"); v != "" {
		cfg.Theme = v
	}
	if os.Getenv("DOCTERM_DEBUG") == "true" {
		cfg.Debug = true
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultConfig().APIURL
	}
	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
