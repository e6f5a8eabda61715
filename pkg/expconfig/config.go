// Package expconfig loads the layered configuration shared by the
// experiment front-ends (cmd/split, cmd/snop, cmd/representative): built-in
// defaults, overridden by an optional YAML file, overridden by
// environment variables, via koanf.
package expconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PPTS_"

// Config is the set of tunables shared by every experiment binary.
type Config struct {
	LPSolverPath string `koanf:"lpsolver_path"`
	GraphPath    string `koanf:"graph_path"`
	Threads      int    `koanf:"threads"`
	LogPath      string `koanf:"log_path"`
	LogMaxSizeMB int    `koanf:"log_max_size_mb"`
	LogMaxAge    int    `koanf:"log_max_age_days"`
	LogMaxBackup int    `koanf:"log_max_backups"`
}

// Validate rejects configurations that no binary could run with.
func (c *Config) Validate() error {
	if c.LPSolverPath == "" {
		return fmt.Errorf("expconfig: lpsolver_path must be set")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("expconfig: threads must be positive, got %d", c.Threads)
	}
	return nil
}

// Loader assembles a Config from defaults, an optional config file, and
// the process environment, in that priority order.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
}

// Option customizes a Loader.
type Option func(*Loader)

// WithConfigPaths overrides the list of file paths searched for a config
// file.
func WithConfigPaths(paths ...string) Option {
	return func(l *Loader) { l.configPaths = paths }
}

// NewLoader returns a Loader with the module's default search paths.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"ppts.yaml",
			"config/ppts.yaml",
			"/etc/ppts/ppts.yaml",
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the defaults -> file -> env layering and returns the
// unmarshaled, validated Config.
func (l *Loader) Load() (*Config, error) {
	defaults := map[string]any{
		"lpsolver_path":    "./lpsolver",
		"graph_path":       "graph.fmi",
		"threads":          1,
		"log_path":         "ppts.log",
		"log_max_size_mb":  100,
		"log_max_age_days": 7,
		"log_max_backups":  3,
	}
	if err := l.k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("expconfig: load defaults: %w", err)
	}

	if path, ok := l.findConfigFile(); ok {
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("expconfig: load config file %s: %w", path, err)
		}
	}

	if err := l.k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("expconfig: load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("expconfig: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) findConfigFile() (string, bool) {
	if p := os.Getenv("PPTS_CONFIG_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	for _, path := range l.configPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, true
		}
	}
	return "", false
}

// Load is a convenience wrapper around NewLoader().Load().
func Load() (*Config, error) {
	return NewLoader().Load()
}
