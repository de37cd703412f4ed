package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Queue modes
const (
	QueueModeInline = "inline"
	QueueModeAsync  = "async"
	QueueModeAMQP   = "amqp"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Pagination   PaginationConfig   `mapstructure:"pagination"`
	Notification NotificationConfig `mapstructure:"notification"`
	Definitions  DefinitionsConfig  `mapstructure:"definitions"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// CacheConfig holds the definition cache configuration. An empty RedisURL
// disables caching.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// QueueConfig selects how ticket writes are executed
type QueueConfig struct {
	Mode     string `mapstructure:"mode"`
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
	Prefetch int    `mapstructure:"prefetch"`
}

// AuthConfig holds bearer-token settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	AdminRole string `mapstructure:"admin_role"`
}

// EngineConfig holds the transition engine settings
type EngineConfig struct {
	ErrorStatusCode string `mapstructure:"error_status_code"`
	SystemUserID    string `mapstructure:"system_user_id"`
	SystemUserName  string `mapstructure:"system_user_name"`
}

// PaginationConfig bounds list queries
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// NotificationConfig holds the Lark credentials and message templates.
// Without credentials notifications are only logged.
type NotificationConfig struct {
	LarkAppID     string `mapstructure:"lark_app_id"`
	LarkAppSecret string `mapstructure:"lark_app_secret"`
	TemplatesPath string `mapstructure:"templates_path"`
}

// DefinitionsConfig lists the directories seeded at startup
type DefinitionsConfig struct {
	SeedDirs []string `mapstructure:"seed_dirs"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads envFile into the process environment when it exists, then
// loads configPath with defaults and environment overrides applied.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := gotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AFLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/aflo.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("cache.prefix", "aflo:")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("queue.mode", QueueModeInline)
	v.SetDefault("queue.exchange", "aflo.tasks")
	v.SetDefault("queue.queue", "aflo.tickets")
	v.SetDefault("queue.prefetch", 8)

	v.SetDefault("auth.issuer", "aflo")
	v.SetDefault("auth.admin_role", "admin")

	v.SetDefault("engine.error_status_code", "error")
	v.SetDefault("engine.system_user_id", "system")
	v.SetDefault("engine.system_user_name", "system")

	v.SetDefault("pagination.default_limit", 20)
	v.SetDefault("pagination.max_limit", 100)

	v.SetDefault("definitions.seed_dirs", []string{"definitions"})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps the conventional names of secrets onto their keys
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.jwt_secret":              "JWT_SECRET",
		"database.dsn":                 "DATABASE_DSN",
		"cache.redis_url":              "REDIS_URL",
		"queue.amqp_url":               "AMQP_URL",
		"notification.lark_app_id":     "LARK_APP_ID",
		"notification.lark_app_secret": "LARK_APP_SECRET",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "AFLO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" && c.Database.DSN == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	switch c.Queue.Mode {
	case QueueModeInline, QueueModeAsync:
	case QueueModeAMQP:
		if c.Queue.AMQPURL == "" {
			errs = append(errs, errors.New("queue.amqp_url is required in amqp mode"))
		}
		if c.Queue.Exchange == "" || c.Queue.Queue == "" {
			errs = append(errs, errors.New("queue.exchange and queue.queue are required in amqp mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.mode %q is not supported", c.Queue.Mode))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	if c.Engine.ErrorStatusCode == "" {
		errs = append(errs, errors.New("engine.error_status_code is required"))
	}

	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit <= 0 {
		errs = append(errs, errors.New("pagination limits must be positive"))
	} else if c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		errs = append(errs, errors.New("pagination.default_limit exceeds pagination.max_limit"))
	}

	return errors.Join(errs...)
}
