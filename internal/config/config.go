package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Mail      MailConfig      `mapstructure:"mail"`
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
}

type ServerConfig struct {
	Env          string `mapstructure:"env"`
	Port         string `mapstructure:"port"`
	Host         string `mapstructure:"host"`     // host used when building verification links
	Protocol     string `mapstructure:"protocol"` // http or https
	CSRFEnabled  bool   `mapstructure:"csrf_enabled"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
	SwaggerHost  string `mapstructure:"swagger_host"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql or postgres
	DSN      string `mapstructure:"dsn"`    // overrides the discrete fields when set
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type AuthConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	TokenMaxAge   time.Duration `mapstructure:"token_max_age"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
	SessionCookie string        `mapstructure:"session_cookie"`
}

type MailConfig struct {
	Server   string        `mapstructure:"server"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	UseSSL   bool          `mapstructure:"use_ssl"`
	Workers  int           `mapstructure:"workers"`
	Queue    int           `mapstructure:"queue"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type TurnstileConfig struct {
	SiteKey   string        `mapstructure:"site_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// envKeys maps config keys to the environment variables the deployment uses.
var envKeys = map[string]string{
	"server.env":           "APP_ENV",
	"server.port":          "SERVER_PORT",
	"server.host":          "APP_HOST",
	"server.protocol":      "APP_PROTOCOL",
	"server.csrf_enabled":  "CSRF_ENABLED",
	"server.secure_cookie": "SECURE_COOKIE",
	"server.swagger_host":  "SWAGGER_HOST",
	"db.driver":            "DB_DRIVER",
	"db.dsn":               "DB_DSN",
	"db.host":              "DB_HOST",
	"db.port":              "DB_PORT",
	"db.user":              "DB_USER",
	"db.password":          "DB_PASSWORD",
	"db.name":              "DB_NAME",
	"db.sslmode":           "DB_SSLMODE",
	"db.migrate":           "DB_MIGRATE",
	"redis.enabled":        "REDIS_ENABLED",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"redis.db":             "REDIS_DB",
	"redis.session_ttl":    "SESSION_TTL",
	"auth.secret_key":      "SECRET_KEY",
	"auth.token_max_age":   "TOKEN_MAX_AGE",
	"auth.bcrypt_cost":     "BCRYPT_COST",
	"auth.session_cookie":  "SESSION_COOKIE",
	"mail.server":          "MAIL_SERVER",
	"mail.port":            "MAIL_PORT",
	"mail.username":        "MAIL_USERNAME",
	"mail.password":        "MAIL_PASSWORD",
	"mail.from":            "MAIL_FROM",
	"mail.use_tls":         "MAIL_USE_TLS",
	"mail.use_ssl":         "MAIL_USE_SSL",
	"mail.workers":         "MAIL_WORKERS",
	"mail.queue":           "MAIL_QUEUE",
	"mail.timeout":         "MAIL_TIMEOUT",
	"turnstile.site_key":   "TURNSTILE_SITE_KEY",
	"turnstile.secret_key": "TURNSTILE_SECRET_KEY",
	"turnstile.endpoint":   "TURNSTILE_ENDPOINT",
	"turnstile.timeout":    "TURNSTILE_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost:8080")
	v.SetDefault("server.protocol", "http")
	v.SetDefault("server.csrf_enabled", true)
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("server.swagger_host", "")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 0)
	v.SetDefault("db.user", "sparked")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "sparked")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 24*time.Hour)

	v.SetDefault("auth.secret_key", "change-me")
	v.SetDefault("auth.token_max_age", 300*time.Second)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.session_cookie", "sparked_session")

	v.SetDefault("mail.server", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.use_ssl", false)
	v.SetDefault("mail.workers", 2)
	v.SetDefault("mail.queue", 100)
	v.SetDefault("mail.timeout", 15*time.Second)

	v.SetDefault("turnstile.site_key", "")
	v.SetDefault("turnstile.secret_key", "")
	v.SetDefault("turnstile.endpoint", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("turnstile.timeout", 5*time.Second)
}

var defaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
}

// Load reads an optional .env file and builds Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Server.Protocol = strings.ToLower(cfg.Server.Protocol)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultPorts[cfg.Database.Driver]
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Server.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported APP_PROTOCOL %q", c.Server.Protocol)
	}
	if c.Server.Env == EnvProduction && c.Auth.SecretKey == "change-me" {
		return fmt.Errorf("SECRET_KEY must be set in production")
	}
	if c.Auth.TokenMaxAge <= 0 {
		return fmt.Errorf("TOKEN_MAX_AGE must be positive")
	}
	return nil
}

// BaseURL is the externally reachable origin used in verification links.
func (c *Config) BaseURL() string {
	return c.Server.Protocol + "://" + strings.TrimRight(c.Server.Host, "/")
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}
