// Package config loads slimedit settings from SLIMEDIT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/illarion/slimedit/internal/crypto"
	"github.com/rs/zerolog"
)

const (
	AppDir        = "slimedit"
	IndexFileName = "index.db"
)

// KDF holds the key derivation defaults used for new encrypted saves
type KDF struct {
	Iterations int    `env:"ITERATIONS" envDefault:"100000"`
	Digest     string `env:"DIGEST" envDefault:"SHA-256"`
	SaltLength int    `env:"SALT_LENGTH" envDefault:"16"`
}

// Config is the top-level configuration
type Config struct {
	KDF KDF `envPrefix:"SLIMEDIT_KDF_"`

	// IndexPath is the recent-documents database. Empty means the default
	// location under the user config directory.
	IndexPath string `env:"SLIMEDIT_INDEX"`
	// NoIndex disables the recent-documents database entirely.
	NoIndex bool `env:"SLIMEDIT_NO_INDEX" envDefault:"false"`
	// LegacyFormat writes encrypted files without the format header, for
	// readers that only understand the two-line layout.
	LegacyFormat bool `env:"SLIMEDIT_LEGACY_FORMAT" envDefault:"false"`

	LogLevel string `env:"SLIMEDIT_LOG_LEVEL" envDefault:"warn"`
	LogFile  string `env:"SLIMEDIT_LOG_FILE"`
}

// Load reads the configuration from the process environment
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}

	if cfg.IndexPath == "" && !cfg.NoIndex {
		path, err := DefaultIndexPath()
		if err != nil {
			return nil, err
		}
		cfg.IndexPath = path
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("invalid KDF settings: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid SLIMEDIT_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return nil
}

// Params converts the KDF settings into crypto parameters
func (c *Config) Params() crypto.Params {
	digest, err := crypto.CanonicalDigest(c.KDF.Digest)
	if err != nil {
		// Keep the raw name so Validate reports it
		digest = c.KDF.Digest
	}
	return crypto.Params{
		Iterations: c.KDF.Iterations,
		Digest:     digest,
		SaltLength: c.KDF.SaltLength,
	}
}

// DefaultIndexPath returns <user config dir>/slimedit/index.db
func DefaultIndexPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, AppDir, IndexFileName), nil
}
