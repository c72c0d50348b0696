package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the process configuration. Ledger policy parameters are not
// here: they live in the settings table and are read per transaction.
type Config struct {
	Env      string         `mapstructure:"env" validate:"oneof=development production"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mail     MailConfig     `mapstructure:"mail"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Argon2   Argon2Config   `mapstructure:"argon2"`
	Identity IdentityConfig `mapstructure:"identity"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required"`
	SSLMode         string        `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db" validate:"min=0"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// MailConfig configures the SMTP sink. An empty Host disables delivery and
// notifications are only logged.
type MailConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	From            string `mapstructure:"from" validate:"required_with=Host,omitempty,email"`
	OperatorAddress string `mapstructure:"operator_address" validate:"omitempty,email"`
	Language        string `mapstructure:"language" validate:"oneof=en de"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer"`
}

type Argon2Config struct {
	Time      uint32 `mapstructure:"time" validate:"min=1"`
	Memory    uint32 `mapstructure:"memory" validate:"min=1024"`
	Threads   uint8  `mapstructure:"threads" validate:"min=1"`
	KeyLength uint32 `mapstructure:"key_length" validate:"min=16"`
}

type IdentityConfig struct {
	CodeLength int `mapstructure:"code_length" validate:"min=1,max=32"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"https://*", "http://*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "supplycredit")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.operator_address", "")
	v.SetDefault("mail.language", "en")

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.issuer", "supplycredit")

	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("identity.code_length", 4)
}

// Load reads config.yaml (if present) from the working directory or
// ./configs and lets environment variables override every key, e.g.
// DATABASE_HOST for database.host.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
