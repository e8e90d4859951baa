package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the repository-level configuration file, looked up at
// the repository root.
const FileName = ".if-changed.toml"

// Config carries repository-level defaults for the checker. Command
// line flags override it.
type Config struct {
	// Patterns preselects which changed files are checked when the
	// command line names none.
	Patterns []string `toml:"patterns"`
	// Jobs caps concurrent file checks; 0 picks a per-machine default.
	Jobs int `toml:"jobs"`

	Report Report `toml:"report"`
}

// Report controls how findings are printed.
type Report struct {
	// Color is "auto", "always" or "never".
	Color string `toml:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{Report: Report{Color: "auto"}}
}

// Load reads the configuration file at the repository root. A missing
// file returns the defaults; a malformed one is an error.
func Load(root string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(root, FileName)
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown configuration keys", "file", FileName, "keys", fmt.Sprint(undecoded))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Report.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("report.color %q is not one of auto, always, never", c.Report.Color)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	return nil
}
