package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/webnote/internal/i18n"
	"github.com/starford/webnote/internal/page"
	"github.com/starford/webnote/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Page    PageConfig        `yaml:"page"`
	I18n    I18nConfig        `yaml:"i18n"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Page.Validate(); err != nil {
		return err
	}
	return c.I18n.Validate()
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

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the note store backend. Path is the SQLite database
// or the JSON document, and is unused by the memory driver.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(storage.DriverSQLite, storage.DriverFile, storage.DriverMemory)),
		validation.Field(&c.Path, validation.When(c.Driver != storage.DriverMemory, validation.Required)),
	)
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

// PageConfig bounds page fetches made when the extension sends no snapshot.
type PageConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Retries      int           `yaml:"retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// Validate validates the page configuration.
func (c *PageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FetchTimeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
	)
}

// Loader returns the page loader settings.
func (c *PageConfig) Loader() page.Config {
	return page.Config{
		FetchTimeout: c.FetchTimeout,
		Retries:      c.Retries,
		RetryDelay:   c.RetryDelay,
	}
}

// I18nConfig holds the UI locale.
type I18nConfig struct {
	Locale string `yaml:"locale"`
}

// Validate validates the i18n configuration.
func (c *I18nConfig) Validate() error {
	locales := make([]any, 0, len(i18n.Locales()))
	for _, l := range i18n.Locales() {
		locales = append(locales, l)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Locale, validation.Required, validation.In(locales...)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	def := page.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: storage.DriverSQLite,
			Path:   "./webnote.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Page: PageConfig{
			FetchTimeout: def.FetchTimeout,
			Retries:      def.Retries,
			RetryDelay:   def.RetryDelay,
		},
		I18n: I18nConfig{
			Locale: i18n.DefaultLocale,
		},
	}
}
