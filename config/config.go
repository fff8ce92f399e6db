// Package config holds interpreter settings. Files may be YAML (.yaml,
// .yml) or TOML (.toml); command-line flags override what they set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/agtcore/engine"
)

var log = commonlog.GetLogger("agtcore.config")

// Config holds interpreter-level settings. Game content lives in the Lua
// game directory, not here.
type Config struct {
	// --- Parser limits ---
	MaxWords         int  `yaml:"max_words" toml:"max_words"`
	StrictAdjectives bool `yaml:"strict_adjectives" toml:"strict_adjectives"`

	// --- Interpreter limits ---
	MaxStackDepth   int `yaml:"max_stack_depth" toml:"max_stack_depth"`
	RedirectCeiling int `yaml:"redirect_ceiling" toml:"redirect_ceiling"`
	UndoDepth       int `yaml:"undo_depth" toml:"undo_depth"`

	// --- Persistence ---
	SaveDB string `yaml:"save_db" toml:"save_db"`

	// --- Logging ---
	LogVerbosity int    `yaml:"log_verbosity" toml:"log_verbosity"`
	LogFile      string `yaml:"log_file" toml:"log_file"`

	// --- Front end ---
	Plain bool  `yaml:"plain" toml:"plain"`
	Trace bool  `yaml:"trace" toml:"trace"`
	Seed  int64 `yaml:"seed" toml:"seed"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxWords:        20,
		MaxStackDepth:   20,
		RedirectCeiling: 100,
		UndoDepth:       engine.DefaultUndoDepth,
		SaveDB:          "agtcore-saves.db",
	}
}

// Load reads path on top of the defaults. The format follows the file
// extension.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".toml":
		_, err = toml.Decode(string(data), &c)
	default:
		return c, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return c, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	log.Debug("config loaded", "path", path)
	return c, nil
}

// Validate rejects values no engine could run with.
func (c Config) Validate() error {
	switch {
	case c.MaxWords < 1:
		return fmt.Errorf("max_words must be at least 1, got %d", c.MaxWords)
	case c.MaxStackDepth < 1:
		return fmt.Errorf("max_stack_depth must be at least 1, got %d", c.MaxStackDepth)
	case c.RedirectCeiling < 1:
		return fmt.Errorf("redirect_ceiling must be at least 1, got %d", c.RedirectCeiling)
	}
	return nil
}

// EngineOptions converts the settings the engine cares about. An
// undo_depth of 0 in a file means no UNDO.
func (c Config) EngineOptions() engine.Options {
	undo := c.UndoDepth
	if undo == 0 {
		undo = -1
	}
	return engine.Options{
		MaxWords:        c.MaxWords,
		MaxStackDepth:   c.MaxStackDepth,
		RedirectCeiling: c.RedirectCeiling,
		UndoDepth:       undo,
		Strict:          c.StrictAdjectives,
		Trace:           c.Trace,
		Seed:            c.Seed,
	}
}
