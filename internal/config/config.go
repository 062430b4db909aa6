// Package config loads macrodash settings from an optional YAML file and
// MACRODASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"macrodash/internal/catalog"
	"macrodash/internal/providers/gemini"
	"macrodash/internal/telemetry"
)

const EnvPrefix = "MACRODASH"

type Config struct {
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type GeminiConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model" validate:"required"`
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIVersion string        `mapstructure:"api_version" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// CatalogConfig points at an alternate indicator table. Empty means the
// embedded default.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name" validate:"required"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// Load reads cfgFile when given, otherwise macrodash.yaml from the working
// directory or $HOME/.config/macrodash if present.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("macrodash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/macrodash")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		cfg.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-3-flash-preview")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.api_version", "v1beta")
	v.SetDefault("gemini.timeout", time.Duration(0))

	v.SetDefault("catalog.path", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "macrodash")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

func validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func (c *Config) GeminiProviderConfig() gemini.Config {
	return gemini.Config{
		APIKey:     c.Gemini.APIKey,
		Model:      c.Gemini.Model,
		BaseURL:    c.Gemini.BaseURL,
		APIVersion: c.Gemini.APIVersion,
		Timeout:    c.Gemini.Timeout,
	}
}

func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    c.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    c.Telemetry.Environment,
		OTLPEndpoint:   c.Telemetry.OTLPEndpoint,
		SampleRatio:    c.Telemetry.SampleRatio,
	}
}

// LoadCatalog returns the embedded catalog unless catalog.path is set.
func (c *Config) LoadCatalog() (catalog.Catalog, error) {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(c.Catalog.Path)
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
