package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gamewatch/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Host    HostConfig        `yaml:"host"`
	History HistoryConfig     `yaml:"history"`
	Cards   CardsConfig       `yaml:"cards"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Host.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if err := c.Cards.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	PIDFile  string     `yaml:"pid_file"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The status API is off unless
// Enabled is set.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(c.Enabled, validation.Required), validation.Min(0), validation.Max(65535)),
	)
}

// HostConfig holds the locations of the files the MiSTer host reads and
// writes.
type HostConfig struct {
	BaseDir        string                 `yaml:"base_dir"`
	Sentinel       string                 `yaml:"sentinel"`
	Indicators     storage.IndicatorPaths `yaml:"indicators"`
	LoadedFile     string                 `yaml:"loaded_file"`
	NamesFile      string                 `yaml:"names_file"`
	RomsetsFile    string                 `yaml:"romsets_file"`
	CommandChannel string                 `yaml:"command_channel"`
}

// Validate validates the host configuration.
func (c *HostConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseDir, validation.Required),
		validation.Field(&c.Sentinel, validation.Required),
		validation.Field(&c.LoadedFile, validation.Required),
		validation.Field(&c.CommandChannel, validation.Required),
	); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	ind := &c.Indicators
	if err := validation.ValidateStruct(ind,
		validation.Field(&ind.FullPath, validation.Required),
		validation.Field(&ind.CurrentPath, validation.Required),
		validation.Field(&ind.StartPath, validation.Required),
		validation.Field(&ind.CoreName, validation.Required),
	); err != nil {
		return fmt.Errorf("host indicators: %w", err)
	}
	return nil
}

// HistoryConfig holds the load history database settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// CardsConfig holds the card scanner settings.
type CardsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the cards configuration.
func (c *CardsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for a home network.
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

// NewDefaultConfig returns a Config pointing at the standard MiSTer paths.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8182,
			},
		},
		Host: HostConfig{
			BaseDir:  "/media/fat",
			Sentinel: "/tmp/FILESELECT",
			Indicators: storage.IndicatorPaths{
				FullPath:    "/tmp/FULLPATH",
				CurrentPath: "/tmp/CURRENTPATH",
				StartPath:   "/tmp/STARTPATH",
				CoreName:    "/tmp/CORENAME",
			},
			LoadedFile:     "/tmp/LOADED",
			NamesFile:      "/media/fat/names.txt",
			RomsetsFile:    "/media/fat/games/NeoGeo/romsets.xml",
			CommandChannel: "/dev/MiSTer_cmd",
		},
		History: HistoryConfig{
			Path: "/media/fat/gamewatch.db",
		},
		Cards: CardsConfig{
			Path: "/media/fat/cardscan.ini",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
