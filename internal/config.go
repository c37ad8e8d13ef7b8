package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/storage"
	pkgconfig "github.com/starford/pfnbot/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration. The four top-level keys
// are required; every section has a default.
type Config struct {
	Token     string `yaml:"token"`
	WatchDir  string `yaml:"watch_dir"`
	CacheFile string `yaml:"cache_file"`
	ChannelID string `yaml:"channel_id"`

	App     ApplicationConfig `yaml:"app"`
	Poll    PollConfig        `yaml:"poll"`
	Storage StorageConfig     `yaml:"storage"`
	Imaging ImagingConfig     `yaml:"imaging"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.WatchDir, validation.Required),
		validation.Field(&c.CacheFile, validation.Required),
		validation.Field(&c.ChannelID, validation.Required),
	); err != nil {
		return err
	}
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Poll.Validate(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the optional read-only HTTP API configuration.
type HTTPConfig struct {
	Enabled bool       `yaml:"enabled"`
	Port    int        `yaml:"port"`
	Auth    AuthConfig `yaml:"auth"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration. A disabled server is not checked.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// PollConfig controls how often the watch directory is scanned.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Watch enables fsnotify nudges between polls.
	Watch bool `yaml:"watch"`
}

// Validate validates the poll configuration.
func (c *PollConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
	)
}

// StorageConfig selects the cache driver.
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = storage.DriverJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(storage.DriverJSON, storage.DriverSQLite)),
	)
}

// ImagingConfig holds the converter settings. An empty TempDir means the
// system temp dir.
type ImagingConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
				Auth: AuthConfig{
					Mode: AuthModeDisabled,
				},
			},
		},
		Poll: PollConfig{
			Interval: 60 * time.Second,
		},
		Storage: StorageConfig{
			Driver: storage.DriverJSON,
		},
	}
}

// LegacyConfigFile is read when the configured file does not exist, so
// deployments that keep config.json next to the binary keep working.
const LegacyConfigFile = "config.json"

// LoadConfig reads filename over the defaults, falling back to
// LegacyConfigFile. A missing file wraps apperr.ErrConfigMissing; unparsable
// or incomplete content wraps apperr.ErrConfigIncomplete.
func LoadConfig(filename string) (*Config, error) {
	cfg := NewDefaultConfig()
	err := pkgconfig.LoadWithDefaults(filename, LegacyConfigFile, cfg)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, pkgconfig.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfigMissing, err)
	case errors.Is(err, pkgconfig.ErrInvalid):
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfigIncomplete, err)
	default:
		return nil, err
	}
}
