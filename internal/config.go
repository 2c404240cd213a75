package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Yookassa      YookassaConfig      `mapstructure:"yookassa"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// YookassaConfig holds the payment gateway credentials. ReturnURLBase is the
// frontend origin users are redirected back to after 3-D Secure.
type YookassaConfig struct {
	ShopID        string `mapstructure:"shop_id" validate:"required"`
	SecretKey     string `mapstructure:"secret_key" validate:"required"`
	BaseURL       string `mapstructure:"base_url"`
	ReturnURLBase string `mapstructure:"return_url_base" validate:"required,url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration entirely from environment
// variables, used for container deployments.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("SECURITY_ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("SECURITY_REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			BCryptCost:           getEnvAsInt("SECURITY_BCRYPT_COST", 10),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("OBSERVABILITY_LOGGING_LEVEL", "info"),
				Format: getEnv("OBSERVABILITY_LOGGING_FORMAT", "json"),
			},
		},
		Yookassa: YookassaConfig{
			ShopID:        getEnv("YOOKASSA_SHOP_ID", ""),
			SecretKey:     getEnv("YOOKASSA_SECRET_KEY", ""),
			BaseURL:       getEnv("YOOKASSA_BASE_URL", "https://api.yookassa.ru/v3"),
			ReturnURLBase: getEnv("YOOKASSA_RETURN_URL_BASE", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			From:     getEnv("SMTP_FROM", "no-reply@tutoring.local"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Yookassa.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("yookassa config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	return nil
}

func (c *YookassaConfig) Validate() error {
	if c.ShopID == "" {
		return errors.New("shop_id is required")
	}
	if c.SecretKey == "" {
		return errors.New("secret_key is required")
	}
	if c.ReturnURLBase == "" {
		return errors.New("return_url_base is required")
	}
	return nil
}
