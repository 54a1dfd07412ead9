// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type ProviderConfig struct {
	Kind      string        `yaml:"kind"`       // textnow | telegram
	ClientTTL time.Duration `yaml:"client_ttl"` // rebuild the client handle after this long
}

type TextNowConfig struct {
	BaseURL   string `yaml:"base_url"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	SIDCookie string `yaml:"sid_cookie"`
	Username  string `yaml:"username"` // defaults to the email's local part
}

type TelegramConfig struct {
	Token       string `yaml:"token"`
	APIEndpoint string `yaml:"api_endpoint"` // tgbotapi format string, e.g. https://api.telegram.org/bot%s/%s
}

type DiscoveryConfig struct {
	RootName          string `yaml:"root_name"`
	MaxDepth          int    `yaml:"max_depth"`
	MaxNodes          int    `yaml:"max_nodes"`
	ConversationDepth int    `yaml:"conversation_depth"`
	SkipAccessors     bool   `yaml:"skip_accessors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL       string        `yaml:"url"` // empty disables the send log
	MaxConns  int32         `yaml:"max_conns"`
	Retention time.Duration `yaml:"retention"` // 0 keeps every record
}

type RedisConfig struct {
	URL        string        `yaml:"url"` // empty disables rate limiting and dedup
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	RateLimit  int           `yaml:"rate_limit"` // sends per destination per window; 0 disables
	RateWindow time.Duration `yaml:"rate_window"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"` // 0 disables duplicate suppression
}

type SecurityConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	RequireAuth bool          `yaml:"require_auth"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing"`
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Provider  ProviderConfig  `yaml:"provider"`
	TextNow   TextNowConfig   `yaml:"textnow"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Security  SecurityConfig  `yaml:"security"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	ProviderTextNow  = "textnow"
	ProviderTelegram = "telegram"
)

// LoadConfig parses -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads path (a missing file leaves every setting at its default),
// applies environment overrides and defaults, then validates.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file.
func applyEnv(cfg *Config) {
	envs := []struct {
		name string
		dst  *string
	}{
		{"TEXTNOW_EMAIL", &cfg.TextNow.Email},
		{"TEXTNOW_PASSWORD", &cfg.TextNow.Password},
		{"TEXTNOW_SID_COOKIE", &cfg.TextNow.SIDCookie},
		{"TEXTNOW_USERNAME", &cfg.TextNow.Username},
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.Token},
		{"DATABASE_URL", &cfg.Database.URL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"JWT_SECRET", &cfg.Security.JWTSecret},
		{"SMS_RELAY_PROVIDER", &cfg.Provider.Kind},
		{"SMS_RELAY_ADDR", &cfg.HTTP.Addr},
	}
	for _, e := range envs {
		if v, ok := os.LookupEnv(e.name); ok && v != "" {
			*e.dst = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.RequestTimeout = normalizeTTL(cfg.HTTP.RequestTimeout, 30*time.Second)
	cfg.HTTP.ReadHeaderTimeout = normalizeTTL(cfg.HTTP.ReadHeaderTimeout, 5*time.Second)
	cfg.HTTP.ShutdownTimeout = normalizeTTL(cfg.HTTP.ShutdownTimeout, 10*time.Second)

	cfg.Provider.Kind = strings.ToLower(strings.TrimSpace(cfg.Provider.Kind))
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = ProviderTextNow
	}
	cfg.Provider.ClientTTL = normalizeTTL(cfg.Provider.ClientTTL, 30*time.Minute)
	if cfg.TextNow.BaseURL == "" {
		cfg.TextNow.BaseURL = "https://www.textnow.com"
	}

	if cfg.Discovery.RootName == "" {
		cfg.Discovery.RootName = "client"
	}
	if cfg.Discovery.MaxDepth <= 0 {
		cfg.Discovery.MaxDepth = 3
	}
	if cfg.Discovery.MaxNodes <= 0 {
		cfg.Discovery.MaxNodes = 2000
	}
	if cfg.Discovery.ConversationDepth <= 0 {
		cfg.Discovery.ConversationDepth = 1
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.CORS.MaxAge <= 0 {
		cfg.CORS.MaxAge = 600
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	cfg.Redis.RateWindow = normalizeTTL(cfg.Redis.RateWindow, time.Minute)
	cfg.Security.TokenTTL = normalizeTTL(cfg.Security.TokenTTL, 24*time.Hour)
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sms-relay"
	}
}

func (c *Config) validate() error {
	switch c.Provider.Kind {
	case ProviderTextNow, ProviderTelegram:
	default:
		return fmt.Errorf("provider.kind %q is not supported", c.Provider.Kind)
	}
	if c.Security.RequireAuth && c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required when security.require_auth is set")
	}
	if c.Redis.RateLimit < 0 {
		return errors.New("redis.rate_limit must not be negative")
	}
	if c.Redis.DedupTTL < 0 {
		return errors.New("redis.dedup_ttl must not be negative")
	}
	if c.Database.Retention < 0 {
		return errors.New("database.retention must not be negative")
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
