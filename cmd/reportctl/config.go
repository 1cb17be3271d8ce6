package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the reportctl settings file.
type Config struct {
	Server  string        `yaml:"server"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Store   string        `yaml:"store"`
	Format  string        `yaml:"format"`
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reportctl"
	}
	return filepath.Join(home, ".config", "reportctl")
}

func defaultConfig() Config {
	return Config{
		Server:  "http://localhost:8080",
		Timeout: 30 * time.Second,
		Store:   filepath.Join(configDir(), "layouts.db"),
		Format:  "yaml",
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
// REPORTCTL_TOKEN wins over the file.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if token := os.Getenv("REPORTCTL_TOKEN"); token != "" {
		cfg.Token = token
	}
	return cfg, nil
}
