package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultServiceName  = "tavern-master"
	DefaultDatabaseName = "tavernmaster.db"
	DefaultBackupsDir   = "backups"
	DefaultMaxBackups   = 20
	DefaultStateFile    = "vault.state"

	KeyringOS     = "os"
	KeyringMemory = "memory"

	appDirName     = "tavernvault"
	configFileName = "config.toml"
)

// Environment variables read by Load.
const (
	EnvConfig  = "TAVERN_CONFIG"
	EnvDataDir = "TAVERN_DATA_DIR"
	EnvService = "TAVERN_SERVICE"
	EnvKeyring = "TAVERN_KEYRING"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the effective settings.
type Config struct {
	ServiceName  string `toml:"service_name"`
	DataDir      string `toml:"data_dir"`
	DatabaseName string `toml:"database_name"`
	BackupsDir   string `toml:"backups_dir"`
	MaxBackups   int    `toml:"max_backups"`
	StateFile    string `toml:"state_file"`
	Keyring      string `toml:"keyring"`
}

// Default returns the built-in settings. The data directory lives under
// the user config directory, named after the service.
func Default() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return &Config{
		ServiceName:  DefaultServiceName,
		DataDir:      filepath.Join(base, DefaultServiceName),
		DatabaseName: DefaultDatabaseName,
		BackupsDir:   DefaultBackupsDir,
		MaxBackups:   DefaultMaxBackups,
		StateFile:    DefaultStateFile,
		Keyring:      KeyringOS,
	}, nil
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, appDirName, configFileName), nil
}

// Load reads the config file at path (a missing file is not an error),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvService); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv(EnvKeyring); v != "" {
		c.Keyring = v
	}
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	switch {
	case c.ServiceName == "":
		return fmt.Errorf("%w: service_name is empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir is empty", ErrInvalidConfig)
	case c.DatabaseName == "" || filepath.Base(c.DatabaseName) != c.DatabaseName:
		return fmt.Errorf("%w: database_name must be a plain file name", ErrInvalidConfig)
	case c.MaxBackups < 1:
		return fmt.Errorf("%w: max_backups must be at least 1", ErrInvalidConfig)
	case c.Keyring != KeyringOS && c.Keyring != KeyringMemory:
		return fmt.Errorf("%w: keyring must be %q or %q", ErrInvalidConfig, KeyringOS, KeyringMemory)
	}
	return nil
}

// DatabasePath is the application database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseName)
}

// BackupsPath is the directory holding database backups.
func (c *Config) BackupsPath() string {
	return c.resolve(c.BackupsDir, DefaultBackupsDir)
}

// StatePath is the bbolt file holding the persisted vault bundle.
func (c *Config) StatePath() string {
	return c.resolve(c.StateFile, DefaultStateFile)
}

func (c *Config) resolve(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
