// Package config loads Raven's server configuration from RAVEN_* environment
// variables, with an optional YAML file to override defaults before the
// environment is applied — the same two-layer shape mainer's own
// command-line parsing gives flags over defaults, just for the knobs that
// make sense as long-lived deployment configuration instead of per-invocation
// flags.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the server subcommand needs. Field tags follow
// caarlos0/env's convention (`env:"NAME"`, optional `envDefault:"..."`); the
// same fields double as YAML keys for the optional override file.
type Config struct {
	// AnchorDir is the host directory the virtual filesystem is rooted at.
	AnchorDir string `env:"RAVEN_ANCHOR_DIR" envDefault:"." yaml:"anchor_dir"`
	// ListenAddr is the TCP address the server accepts connections on.
	ListenAddr string `env:"RAVEN_LISTEN_ADDR" envDefault:":4000" yaml:"listen_addr"`
	// TickBudget is the instruction count each fiber gets per scheduling
	// round before being made to yield (spec.md §4.F/§5).
	TickBudget int `env:"RAVEN_TICK_BUDGET" envDefault:"10000" yaml:"tick_budget"`
	// MaxSteps bounds total instructions a single fiber may execute before
	// its next tick-budget check even considers it still runnable; 0 means
	// unbounded (left to TickBudget alone to keep things fair).
	MaxSteps int `env:"RAVEN_MAX_STEPS" envDefault:"0" yaml:"max_steps"`
}

// Load reads defaults, applies yamlPath's contents if non-empty and the file
// exists, then applies RAVEN_* environment variables over the result —
// environment variables always win, matching mainer's own env-over-default
// precedence.
func Load(yamlPath string) (Config, error) {
	var cfg Config

	if yamlPath != "" {
		if err := applyYAML(&cfg, yamlPath); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyYAML(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return yaml.NewDecoder(f).Decode(cfg)
}
