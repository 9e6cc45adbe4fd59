package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/repository"
	"github.com/weatherapp/backend/internal/widget"
)

// Config holds every runtime setting. Field keys double as env names.
type Config struct {
	OpenWeatherAPIKey   string `mapstructure:"openweather_api_key" validate:"required"`
	OpenWeatherEndpoint string `mapstructure:"openweather_endpoint" validate:"omitempty,url"`

	GeoDBAPIKey   string `mapstructure:"geodb_api_key" validate:"required_if=InputMode suggest"`
	GeoDBEndpoint string `mapstructure:"geodb_endpoint" validate:"omitempty,url"`
	GeoDBHost     string `mapstructure:"geodb_host"`

	InputMode      string        `mapstructure:"input_mode" validate:"oneof=suggest autofetch"`
	DebounceDelay  time.Duration `mapstructure:"debounce_delay" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	DefaultCity    string        `mapstructure:"default_city"`
	DefaultUnit    string        `mapstructure:"default_unit" validate:"oneof=metric imperial"`

	StorageDriver    string `mapstructure:"storage_driver" validate:"oneof=memory sqlite postgres redis"`
	SQLitePath       string `mapstructure:"sqlite_path" validate:"required_if=StorageDriver sqlite"`
	DatabaseURL      string `mapstructure:"database_url" validate:"required_if=StorageDriver postgres"`
	RedisAddr        string `mapstructure:"redis_addr" validate:"required_if=StorageDriver redis"`
	RedisPassword    string `mapstructure:"redis_password"`
	RedisDB          int    `mapstructure:"redis_db" validate:"gte=0"`
	StorageNamespace string `mapstructure:"storage_namespace"`

	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	Env      string `mapstructure:"go_env"`
}

var defaults = map[string]any{
	"openweather_api_key":  "",
	"openweather_endpoint": "",
	"geodb_api_key":        "",
	"geodb_endpoint":       "",
	"geodb_host":           "",
	"input_mode":           string(widget.ModeSuggest),
	"debounce_delay":       widget.DefaultDebounceDelay,
	"request_timeout":      widget.DefaultRequestTimeout,
	"default_city":         widget.DefaultCity,
	"default_unit":         string(domain.UnitMetric),
	"storage_driver":       repository.DriverSQLite,
	"sqlite_path":          "weather.db",
	"database_url":         "",
	"redis_addr":           "localhost:6379",
	"redis_password":       "",
	"redis_db":             0,
	"storage_namespace":    "",
	"port":                 "8080",
	"log_level":            "info",
	"go_env":               "development",
}

// Load reads .env, the optional config file and the environment, in
// increasing order of precedence. The result is not validated.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	cfg.InputMode = strings.ToLower(strings.TrimSpace(cfg.InputMode))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DefaultUnit = strings.ToLower(strings.TrimSpace(cfg.DefaultUnit))
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their env name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return strings.ToUpper(name)
	})
	return v
}

// Validate checks the settings. A missing required value is reported as a
// *domain.ConfigurationError naming its env key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: failed to validate: %w", err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" || fe.Tag() == "required_if" {
			return &domain.ConfigurationError{Key: fe.Field()}
		}
	}
	fe := fieldErrs[0]
	return fmt.Errorf("config: invalid %s %q (%s)", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
}

// Unit returns the configured starting unit
func (c *Config) Unit() domain.Unit {
	u, err := domain.ParseUnit(c.DefaultUnit)
	if err != nil {
		return domain.UnitMetric
	}
	return u
}

// FiberLogLevel maps LOG_LEVEL to a fiber log level
func (c *Config) FiberLogLevel() log.Level {
	switch c.LogLevel {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// StorageOptions returns the recent-search backend settings
func (c *Config) StorageOptions() repository.Options {
	return repository.Options{
		Driver:        c.StorageDriver,
		SQLitePath:    c.SQLitePath,
		DatabaseURL:   c.DatabaseURL,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// WidgetOptions returns controller settings. Suggester and Locator are left
// for the caller to attach.
func (c *Config) WidgetOptions() widget.Options {
	return widget.Options{
		Mode:           widget.InputMode(c.InputMode),
		DebounceDelay:  c.DebounceDelay,
		RequestTimeout: c.RequestTimeout,
		DefaultCity:    c.DefaultCity,
		Unit:           c.Unit(),
	}
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
