package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Editor  EditorConfig      `yaml:"editor"`
	Import  ImportConfig      `yaml:"import"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// TranscriptThrottle bounds how often transcript.updated is pushed per session.
	TranscriptThrottle time.Duration `yaml:"transcript_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.TranscriptThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
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

// StorageConfig selects where session state is persisted.
type StorageConfig struct {
	Backend string           `yaml:"backend"`
	Path    string           `yaml:"path"`
	S3      storage.S3Config `yaml:"s3"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = StorageFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageFS, StorageS3)),
		validation.Field(&c.Path, validation.When(c.Backend == StorageFS, validation.Required)),
		validation.Field(&c.S3, validation.When(c.Backend == StorageS3, validation.By(func(any) error {
			return validation.ValidateStruct(&c.S3,
				validation.Field(&c.S3.Endpoint, validation.Required),
				validation.Field(&c.S3.Bucket, validation.Required),
			)
		}))),
	)
}

// SQLiteConfig holds the audit database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EditorConfig tunes the editors created for each session.
type EditorConfig struct {
	MaxHistory      int                `yaml:"max_history"`
	ContextStrategy string             `yaml:"context_strategy"`
	SessionCache    int                `yaml:"session_cache"`
	Markup          markup.Conventions `yaml:"markup"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxHistory, validation.Min(0)),
		validation.Field(&c.ContextStrategy, validation.Required,
			validation.In(string(editor.StrategyNeighbor), string(editor.StrategyHeading))),
		validation.Field(&c.SessionCache, validation.Min(1)),
	); err != nil {
		return err
	}
	m := &c.Markup
	return validation.ValidateStruct(m,
		validation.Field(&m.EditableClass, validation.Required),
		validation.Field(&m.EmptyClass, validation.Required),
		validation.Field(&m.HeadingClass, validation.Required),
		validation.Field(&m.TopHeadingClass, validation.Required),
		validation.Field(&m.PendingClass, validation.Required),
		validation.Field(&m.AppliedClass, validation.Required, validation.NotIn(m.PendingClass)),
	)
}

// ServiceOptions converts the editor section into service options.
func (c *EditorConfig) ServiceOptions() editservice.Options {
	return editservice.Options{
		Conventions: c.Markup,
		Strategy:    editor.Strategy(c.ContextStrategy),
		MaxHistory:  c.MaxHistory,
		CacheSize:   c.SessionCache,
	}
}

// ImportConfig controls the watched import folder.
type ImportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Pattern, validation.When(c.Enabled, validation.Required)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
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
	opts := editservice.DefaultOptions()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			TranscriptThrottle: 2 * time.Second,
		},
		Storage: StorageConfig{
			Backend: StorageFS,
			Path:    "./sessions",
			S3: storage.S3Config{
				Region: "us-east-1",
				Prefix: "sessions/",
			},
		},
		SQLite: SQLiteConfig{
			Path: "./redline.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			MaxHistory:      opts.MaxHistory,
			ContextStrategy: string(opts.Strategy),
			SessionCache:    opts.CacheSize,
			Markup:          opts.Conventions,
		},
		Import: ImportConfig{
			Path:    "./inbox",
			Pattern: "**/*.html",
		},
	}
}
