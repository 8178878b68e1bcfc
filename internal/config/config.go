package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Forecast ForecastConfig `yaml:"forecast" mapstructure:"forecast"`
	Alerts   AlertsConfig   `yaml:"alerts" mapstructure:"alerts"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot/event database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnalysisConfig configures interval estimation and risk classification.
// DefaultIntervalDays is the single named fallback periodicity used wherever
// an entity or group lacks its own estimate.
type AnalysisConfig struct {
	MinGapDays             int     `yaml:"min_gap_days" mapstructure:"min_gap_days"`
	MaxGapDays             int     `yaml:"max_gap_days" mapstructure:"max_gap_days"`
	DefaultIntervalDays    float64 `yaml:"default_interval_days" mapstructure:"default_interval_days"`
	ClassifyWithoutHistory bool    `yaml:"classify_without_history" mapstructure:"classify_without_history"`
	ReferenceDate          string  `yaml:"reference_date" mapstructure:"reference_date"`
	Workers                int     `yaml:"workers" mapstructure:"workers"`
}

// ForecastConfig configures the demand projection horizon.
type ForecastConfig struct {
	HorizonDays   int `yaml:"horizon_days" mapstructure:"horizon_days"`
	ToleranceDays int `yaml:"tolerance_days" mapstructure:"tolerance_days"`
	PeakDays      int `yaml:"peak_days" mapstructure:"peak_days"`
}

// AlertsConfig configures alert list truncation.
type AlertsConfig struct {
	MaxCritical   int `yaml:"max_critical" mapstructure:"max_critical"`
	MaxAreas      int `yaml:"max_areas" mapstructure:"max_areas"`
	MaxCategories int `yaml:"max_categories" mapstructure:"max_categories"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port         int     `yaml:"port" mapstructure:"port"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COLLECTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "collection-insights.db")
	v.SetDefault("analysis.min_gap_days", 1)
	v.SetDefault("analysis.max_gap_days", 120)
	v.SetDefault("analysis.default_interval_days", 14)
	v.SetDefault("analysis.classify_without_history", true)
	v.SetDefault("analysis.workers", 8)
	v.SetDefault("forecast.horizon_days", 30)
	v.SetDefault("forecast.tolerance_days", 1)
	v.SetDefault("forecast.peak_days", 10)
	v.SetDefault("alerts.max_critical", 20)
	v.SetDefault("alerts.max_areas", 10)
	v.SetDefault("alerts.max_categories", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
