package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OverpassConfig configures point ingestion from the Overpass API.
type OverpassConfig struct {
	Endpoints          []string `yaml:"endpoints" mapstructure:"endpoints"`
	TimeoutSecs        int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxParallel        int      `yaml:"max_parallel" mapstructure:"max_parallel"`
	RequestsPerMinute  int      `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	RetryAttempts      int      `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffSecs   int      `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	BusinessArea       string   `yaml:"business_area" mapstructure:"business_area"`
	BusinessAdminLevel int      `yaml:"business_admin_level" mapstructure:"business_admin_level"`
	TransitArea        string   `yaml:"transit_area" mapstructure:"transit_area"`
	TransitAdminLevel  int      `yaml:"transit_admin_level" mapstructure:"transit_admin_level"`
	TransitLimit       int      `yaml:"transit_limit" mapstructure:"transit_limit"`
}

func (c OverpassConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c OverpassConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSecs) * time.Second
}

// ScoringConfig selects the scoring formula and the tier cutoffs.
type ScoringConfig struct {
	Strategy     string  `yaml:"strategy" mapstructure:"strategy"`
	HighQuantile float64 `yaml:"high_quantile" mapstructure:"high_quantile"`
	MidQuantile  float64 `yaml:"mid_quantile" mapstructure:"mid_quantile"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ZONES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("overpass.endpoints", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.openstreetmap.ru/api/interpreter",
	})
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.max_parallel", 1)
	v.SetDefault("overpass.requests_per_minute", 6)
	v.SetDefault("overpass.retry_attempts", 2)
	v.SetDefault("overpass.retry_backoff_secs", 5)
	v.SetDefault("overpass.business_area", "Karnataka")
	v.SetDefault("overpass.business_admin_level", 4)
	v.SetDefault("overpass.transit_area", "Bangalore")
	v.SetDefault("overpass.transit_admin_level", 8)
	v.SetDefault("overpass.transit_limit", 5000)
	v.SetDefault("scoring.strategy", "opportunity_adjusted")
	v.SetDefault("scoring.high_quantile", 0)
	v.SetDefault("scoring.mid_quantile", 0)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// DATABASE_URL is honoured for compatibility with existing deployments.
	if err := v.BindEnv("store.database_url", "ZONES_STORE_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, eris.Wrap(err, "config: bind database url")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if len(c.Overpass.Endpoints) == 0 {
		return eris.New("config: at least one overpass endpoint is required")
	}
	switch strings.ToLower(c.Scoring.Strategy) {
	case "", "opportunity_adjusted", "plain":
	default:
		return eris.Errorf("config: unknown scoring strategy %q", c.Scoring.Strategy)
	}
	high, mid := c.Scoring.HighQuantile, c.Scoring.MidQuantile
	if high < 0 || high > 1 || mid < 0 || mid > 1 {
		return eris.New("config: scoring quantiles must be within [0, 1]")
	}
	if high > 0 && mid > 0 && mid >= high {
		return eris.Errorf("config: mid quantile %.2f must be below high quantile %.2f", mid, high)
	}
	return nil
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
