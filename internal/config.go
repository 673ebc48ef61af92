package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/rollbook/internal/i18n"
	"github.com/starford/rollbook/internal/recordstore"
	"github.com/starford/rollbook/internal/session"
	"github.com/starford/rollbook/internal/storage"
	"github.com/starford/rollbook/internal/web"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultCredentialsEnv names the variable holding the service account JSON.
const DefaultCredentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS_JSON"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Session SessionConfig     `yaml:"session"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Language is the UI language used when a request states no preference.
	Language string     `yaml:"language"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Language, validation.Required, validation.By(supportedLanguage)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

func supportedLanguage(value interface{}) error {
	s, _ := value.(string)
	if _, ok := i18n.Parse(s); !ok {
		return errors.New("unsupported language")
	}
	return nil
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// SecureCookies marks session and CSRF cookies Secure. Enable behind TLS.
	SecureCookies bool `yaml:"secure_cookies"`
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

// StoreConfig selects and configures the backing store.
//
// Kind is one of "none", "sheets", "csv" or "sqlite". With "none" records
// live only as long as the session.
type StoreConfig struct {
	Kind    string        `yaml:"kind"`
	Timeout time.Duration `yaml:"timeout"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	CSV     PathConfig    `yaml:"csv"`
	SQLite  PathConfig    `yaml:"sqlite"`
}

// Validate validates the store configuration and the section its kind uses.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required,
			validation.In(storage.KindNone, storage.KindSheets, storage.KindCSV, storage.KindSQLite)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	switch c.Kind {
	case storage.KindSheets:
		return c.Sheets.Validate()
	case storage.KindCSV:
		return c.CSV.Validate()
	case storage.KindSQLite:
		return c.SQLite.Validate()
	}
	return nil
}

// SheetsConfig identifies the spreadsheet range and its credential.
// CredentialsFile takes precedence over CredentialsEnv when set.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range"`
	CredentialsEnv  string `yaml:"credentials_env"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Validate validates the sheets configuration.
func (c *SheetsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SpreadsheetID, validation.Required),
		validation.Field(&c.Range, validation.Required),
	); err != nil {
		return fmt.Errorf("store.sheets: %w", err)
	}
	if c.CredentialsEnv == "" && c.CredentialsFile == "" {
		return errors.New("store.sheets: credentials_env or credentials_file is required")
	}
	return nil
}

// PathConfig holds the location of a file-backed store.
type PathConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the path configuration.
func (c *PathConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SessionConfig holds per-visitor session settings.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	CookieName  string        `yaml:"cookie_name"`
	// CSRFKey enables CSRF protection of form posts. It must be 32 bytes.
	CSRFKey string `yaml:"csrf_key"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.CSRFKey, validation.Length(32, 32)),
	); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// AuthConfig holds JSON API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Language: "en",
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Kind:    storage.KindNone,
			Timeout: recordstore.DefaultTimeout,
			Sheets: SheetsConfig{
				Range:          "Sheet1!A1:E1000",
				CredentialsEnv: DefaultCredentialsEnv,
			},
			CSV:    PathConfig{Path: "./records.csv"},
			SQLite: PathConfig{Path: "./rollbook.db"},
		},
		Session: SessionConfig{
			IdleTimeout: session.DefaultIdleTimeout,
			CookieName:  web.DefaultCookieName,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
