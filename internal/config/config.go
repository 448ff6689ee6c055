// Package config loads server settings from WARCHIEF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"warchief/server/internal/sim"
	"warchief/server/logging"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "WARCHIEF_"

const (
	StoreMemory = "memory"
	StoreYAML   = "yaml"
	StoreSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ListenAddr string `env:"ADDR" envDefault:":8080"`

	TickRate        int `env:"TICK_RATE" envDefault:"10"`
	CatchupMaxTicks int `env:"CATCHUP_MAX_TICKS" envDefault:"3"`
	CommandCapacity int `env:"COMMAND_CAPACITY" envDefault:"256"`
	PerActorLimit   int `env:"PER_ACTOR_LIMIT" envDefault:"8"`

	StoreDriver string `env:"STORE" envDefault:"memory"`
	StorePath   string `env:"STORE_PATH" envDefault:"data/macros"`
	// Watch follows hand-edited YAML macros. Ignored by other drivers.
	Watch bool `env:"WATCH" envDefault:"true"`

	LogSinks       []string      `env:"LOG_SINKS" envDefault:"console" envSeparator:","`
	LogJSONPath    string        `env:"LOG_JSON_PATH"`
	LogMinSeverity string        `env:"LOG_MIN_SEVERITY" envDefault:"info"`
	LogBufferSize  int           `env:"LOG_BUFFER_SIZE" envDefault:"512"`
	LogFlush       time.Duration `env:"LOG_FLUSH_INTERVAL" envDefault:"2s"`

	GlobalCooldown     time.Duration `env:"GCD" envDefault:"1500ms"`
	ManaRegenPerSecond float64       `env:"MANA_REGEN" envDefault:"2"`
	SeedDemo           bool          `env:"SEED_DEMO" envDefault:"true"`

	EnablePprof bool `env:"PPROF"`
}

// Load parses the environment into a validated Config.
func Load() (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules env tags cannot express.
func (c Config) Validate() error {
	var problems []error
	if c.TickRate <= 0 {
		problems = append(problems, fmt.Errorf("tick rate must be positive, got %d", c.TickRate))
	}
	if c.CommandCapacity <= 0 {
		problems = append(problems, fmt.Errorf("command capacity must be positive, got %d", c.CommandCapacity))
	}
	if c.GlobalCooldown < 0 {
		problems = append(problems, fmt.Errorf("global cooldown must not be negative, got %s", c.GlobalCooldown))
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreYAML, StoreSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			problems = append(problems, fmt.Errorf("store %s requires a path", c.StoreDriver))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if _, err := logging.ParseSeverity(c.LogMinSeverity); err != nil {
		problems = append(problems, err)
	}
	for _, sink := range c.LogSinks {
		switch strings.TrimSpace(sink) {
		case "console", "memory":
		case "json":
			if c.LogJSONPath == "" {
				problems = append(problems, errors.New("json log sink requires a log path"))
			}
		default:
			problems = append(problems, fmt.Errorf("unknown log sink %q", sink))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

// Loop maps the tick settings onto the simulation loop.
func (c Config) Loop() sim.LoopConfig {
	return sim.LoopConfig{
		TickRate:        c.TickRate,
		CatchupMaxTicks: c.CatchupMaxTicks,
		CommandCapacity: c.CommandCapacity,
		PerActorLimit:   c.PerActorLimit,
		WarningStep:     c.CommandCapacity / 2,
	}
}

// Logging maps the log settings onto the event router.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = nil
	for _, sink := range c.LogSinks {
		if trimmed := strings.TrimSpace(sink); trimmed != "" {
			cfg.EnabledSinks = append(cfg.EnabledSinks, trimmed)
		}
	}
	if c.LogBufferSize > 0 {
		cfg.BufferSize = c.LogBufferSize
	}
	if severity, err := logging.ParseSeverity(c.LogMinSeverity); err == nil {
		cfg.MinimumSeverity = severity
	}
	cfg.JSON.FilePath = c.LogJSONPath
	if c.LogFlush > 0 {
		cfg.JSON.FlushInterval = c.LogFlush
	}
	return cfg
}
