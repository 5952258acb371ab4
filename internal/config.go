package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/api"
	"github.com/starford/corkboard/internal/board"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Cache  CacheConfig       `yaml:"cache"`
	Redis  RedisConfig       `yaml:"redis"`
	Auth   AuthConfig        `yaml:"auth"`
	Board  BoardConfig       `yaml:"board"`
	AI     AIConfig          `yaml:"ai"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"app", &c.App},
		{"sqlite", &c.SQLite},
		{"cache", &c.Cache},
		{"redis", &c.Redis},
		{"auth", &c.Auth},
		{"board", &c.Board},
		{"ai", &c.AI},
		{"sse", &c.SSE},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// StaticDir holds the built web UI. A missing index.html is not an error.
	StaticDir string `yaml:"static_dir"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CacheConfig holds the directory of the per-user local item cache.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// RedisConfig configures the optional workspace read cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, is.DialString),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "jwt": HS256 bearer JWTs signed with JWTSecret; the subject is the user id.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = api.AuthDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(api.AuthDisabled, api.AuthToken, api.AuthJWT)),
		validation.Field(&c.Token, validation.When(c.Mode == api.AuthToken, validation.Required)),
		validation.Field(&c.JWTSecret, validation.When(c.Mode == api.AuthJWT, validation.Required, validation.Length(16, 0))),
	)
}

// API converts the config for the router.
func (c *AuthConfig) API() api.AuthConfig {
	return api.AuthConfig{Mode: c.Mode, Token: c.Token, JWTSecret: c.JWTSecret}
}

// BoardConfig tunes the interactive sessions used by the mcp and export
// commands.
type BoardConfig struct {
	SaveDebounce    time.Duration `yaml:"save_debounce"`
	ZoomSensitivity float64       `yaml:"zoom_sensitivity"`
	// RemoteURL, if set, makes sessions sync with a running server's API
	// instead of opening the database directly.
	RemoteURL   string `yaml:"remote_url"`
	RemoteToken string `yaml:"remote_token"`
}

// Validate validates the board configuration.
func (c *BoardConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SaveDebounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ZoomSensitivity, validation.Required, validation.Min(0.0)),
		validation.Field(&c.RemoteURL, is.URL),
	)
}

// AIConfig configures the generative model. An empty APIKey turns AI
// features into their placeholder replies.
type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
	)
}

// SSEConfig configures the live event stream.
type SSEConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Required, validation.Min(time.Millisecond)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        5000,
				CORSOrigins: []string{"*"},
			},
			StaticDir: "./dist",
		},
		SQLite: SQLiteConfig{
			Path: "./corkboard.db",
		},
		Cache: CacheConfig{
			Dir: "./cache",
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: api.AuthDisabled,
		},
		Board: BoardConfig{
			SaveDebounce:    time.Second,
			ZoomSensitivity: board.DefaultZoomSensitivity,
		},
		AI: AIConfig{
			Model: ai.DefaultModel,
		},
		SSE: SSEConfig{
			Throttle: 2 * time.Second,
		},
	}
}
