package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/modelundo/internal/config/loader"
	"github.com/dshills/modelundo/internal/logging"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "MODELUNDO_"

// DefaultUndoDepth is the default number of transactions kept per history.
const DefaultUndoDepth = 20

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all session settings.
type Config struct {
	Undo  UndoConfig  `toml:"undo"`
	Log   LogConfig   `toml:"log"`
	Model ModelConfig `toml:"model"`
}

// UndoConfig configures the undo manager.
type UndoConfig struct {
	// Depth bounds the undo and the redo history.
	Depth int `toml:"depth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// ModelConfig configures the element model.
type ModelConfig struct {
	// Metamodel is a YAML metamodel file. Empty selects the built-in one.
	Metamodel string `toml:"metamodel"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Undo: UndoConfig{Depth: DefaultUndoDepth},
		Log:  LogConfig{Level: "info"},
	}
}

func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"undo":  map[string]any{"depth": int64(d.Undo.Depth)},
		"log":   map[string]any{"level": d.Log.Level},
		"model": map[string]any{"metamodel": d.Model.Metamodel},
	}
}

// Load builds a Config from defaults, the file at path and the
// environment. An empty path skips the file layer; a missing file is
// not an error. The result is validated.
func Load(path string) (Config, error) {
	merged := defaultMap()

	if path != "" {
		l, err := loader.ForPath(path)
		if err != nil {
			return Config{}, err
		}
		fileConfig, err := l.Load()
		if err != nil {
			return Config{}, err
		}
		loader.DeepMerge(merged, fileConfig)
	}

	env := loader.NewEnvLoader(EnvPrefix)
	envConfig, err := env.Load()
	if err != nil {
		return Config{}, err
	}
	loader.DeepMerge(merged, envConfig)

	cfg, err := decode(merged)
	if err != nil {
		return Config{}, err
	}

	if path != "" && cfg.Model.Metamodel != "" && !filepath.IsAbs(cfg.Model.Metamodel) {
		cfg.Model.Metamodel = filepath.Join(filepath.Dir(path), cfg.Model.Metamodel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode maps the merged layers onto Config by round-tripping through TOML.
func decode(m map[string]any) (Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return Config{}, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Undo.Depth < 1 {
		errs = append(errs, fmt.Errorf("%w: undo.depth must be at least 1, got %d", ErrInvalid, c.Undo.Depth))
	}
	if _, ok := logging.LookupLogLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("%w: unknown log.level %q", ErrInvalid, c.Log.Level))
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured level, or info if it is unknown.
func (c Config) LogLevel() logging.LogLevel {
	return logging.ParseLogLevel(c.Log.Level)
}
