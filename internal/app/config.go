package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // hcl files or directories
	PluginRoot  string   // root for *.lua plugins and task sources

	LogFormat       string
	LogLevel        string // empty defers to the LogLevel preference
	HealthcheckPort int
	WorkerCount     int

	RemoteURL            string
	RemoteNamespace      string
	RemoteInsecure       bool
	RemoteConnectTimeout time.Duration

	ReportExecutionFaults bool
}

// NewConfig validates cfg and fills in defaults. The plugin root defaults to
// the first configuration path, or its directory when it is a file.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	if cfg.WorkerCount < 0 {
		return nil, errors.New("worker count cannot be negative")
	}
	if cfg.PluginRoot == "" {
		root := cfg.ConfigPaths[0]
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		cfg.PluginRoot = root
	}
	if cfg.RemoteNamespace == "" {
		cfg.RemoteNamespace = "/"
	}
	return &cfg, nil
}
