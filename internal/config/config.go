package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	serrors "github.com/searchfs/searchfs/internal/errors"
)

// DefaultBatchSize is the number of entries loaded per transaction.
const DefaultBatchSize = 10000

// Output formats accepted by search.format.
const (
	FormatPath = "path"
	FormatLong = "long"
	FormatJSON = "json"
)

// Config represents the complete searchfs configuration.
type Config struct {
	Version  int           `yaml:"version" json:"version"`
	Database string        `yaml:"database" json:"database"`
	Index    IndexConfig   `yaml:"index" json:"index"`
	Search   SearchConfig  `yaml:"search" json:"search"`
	Logging  LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures index builds.
type IndexConfig struct {
	// BatchSize is the number of entries inserted per transaction.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Roots are indexed when `searchfs index` is run without arguments.
	Roots []string `yaml:"roots" json:"roots"`
}

// SearchConfig holds defaults for `searchfs search` flags.
type SearchConfig struct {
	StrictDirectory bool   `yaml:"strict_directory" json:"strict_directory"`
	IgnoreCase      bool   `yaml:"ignore_case" json:"ignore_case"`
	NullSeparator   bool   `yaml:"null_separator" json:"null_separator"`
	Format          string `yaml:"format" json:"format"`
}

// LoggingConfig configures debug log files.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version:  1,
		Database: DefaultDatabasePath(),
		Index: IndexConfig{
			BatchSize: DefaultBatchSize,
			Roots:     []string{},
		},
		Search: SearchConfig{
			Format: FormatPath,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDatabasePath returns ~/.searchfs/searchfs.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".searchfs", "searchfs.db")
	}
	return filepath.Join(home, ".searchfs", "searchfs.db")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory layout:
//   - $XDG_CONFIG_HOME/searchfs/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/searchfs/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "searchfs", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "searchfs", "config.yaml")
	}
	return filepath.Join(home, ".config", "searchfs", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the effective configuration.
// Sources are applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/searchfs/config.yaml)
//  3. The file named by explicitPath (--config), which must exist if given
//  4. Environment variables (SEARCHFS_*)
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, serrors.New(serrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file not found: %s", explicitPath), nil).
				WithDetail("path", explicitPath)
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.Database = ExpandPath(cfg.Database)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return serrors.New(serrors.ErrCodeConfigPermission,
			fmt.Sprintf("failed to read config file %s", path), err).
			WithDetail("path", path)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Database != "" {
		c.Database = other.Database
	}

	if other.Index.BatchSize != 0 {
		c.Index.BatchSize = other.Index.BatchSize
	}
	if len(other.Index.Roots) > 0 {
		c.Index.Roots = other.Index.Roots
	}

	if other.Search.StrictDirectory {
		c.Search.StrictDirectory = true
	}
	if other.Search.IgnoreCase {
		c.Search.IgnoreCase = true
	}
	if other.Search.NullSeparator {
		c.Search.NullSeparator = true
	}
	if other.Search.Format != "" {
		c.Search.Format = other.Search.Format
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies SEARCHFS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEARCHFS_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("SEARCHFS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("SEARCHFS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Database == "" {
		return serrors.ConfigError("database path must not be empty", nil)
	}
	if c.Index.BatchSize <= 0 {
		return serrors.ConfigError(fmt.Sprintf("index.batch_size must be positive, got %d", c.Index.BatchSize), nil)
	}

	switch strings.ToLower(c.Search.Format) {
	case FormatPath, FormatLong, FormatJSON:
	default:
		return serrors.ConfigError(fmt.Sprintf("search.format must be 'path', 'long' or 'json', got %s", c.Search.Format), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return serrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return serrors.ConfigError("logging.max_size_mb and logging.max_files must be non-negative", nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
