package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CensusConfig points the ACS client at a dataset.
type CensusConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Year              int    `yaml:"year" mapstructure:"year"`
	Dataset           string `yaml:"dataset" mapstructure:"dataset"`
	APIKey            string `yaml:"api_key" mapstructure:"api_key"`
	MaxVarsPerRequest int    `yaml:"max_vars_per_request" mapstructure:"max_vars_per_request"`
}

// FetchConfig tunes the HTTP transport.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RenderConfig holds renderer defaults.
type RenderConfig struct {
	Format         string `yaml:"format" mapstructure:"format"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
	Buckets        int    `yaml:"buckets" mapstructure:"buckets"`
	ShowLabels     bool   `yaml:"show_labels" mapstructure:"show_labels"`
	DropMissingZIP bool   `yaml:"drop_missing_zip" mapstructure:"drop_missing_zip"`
	PaletteFile    string `yaml:"palette_file" mapstructure:"palette_file"`
}

// BoundaryConfig locates the cartographic boundary files.
type BoundaryConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Year    int    `yaml:"year" mapstructure:"year"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the render history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("ACSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.max_vars_per_request", 49)
	v.SetDefault("fetch.user_agent", "acsmap/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 10)
	v.SetDefault("render.format", "geojson")
	v.SetDefault("render.output_dir", ".")
	v.SetDefault("render.buckets", 9)
	v.SetDefault("render.show_labels", true)
	v.SetDefault("render.drop_missing_zip", true)
	v.SetDefault("render.palette_file", "")
	v.SetDefault("boundary.base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("boundary.year", 2023)
	v.SetDefault("boundary.dir", "/tmp/acsmap/boundaries")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "acsmap.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks the settings a command mode depends on. Every problem is
// reported at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "render":
		errs = append(errs, c.validateRender()...)
	case "serve":
		errs = append(errs, c.validateRender()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "history":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateRender() []string {
	var errs []string
	if c.Census.BaseURL == "" {
		errs = append(errs, "census.base_url is required")
	}
	if c.Census.Year < 2005 {
		errs = append(errs, "census.year must be >= 2005")
	}
	if c.Census.MaxVarsPerRequest < 1 || c.Census.MaxVarsPerRequest > 49 {
		errs = append(errs, "census.max_vars_per_request must be between 1 and 49")
	}
	if c.Render.Buckets < 1 || c.Render.Buckets > 9 {
		errs = append(errs, "render.buckets must be between 1 and 9")
	}
	if c.Fetch.RatePerSec <= 0 {
		errs = append(errs, "fetch.rate_per_sec must be > 0")
	}
	if c.Boundary.Dir == "" {
		errs = append(errs, "boundary.dir is required")
	}
	return append(errs, c.validateStore()...)
}

func (c *Config) validateStore() []string {
	switch strings.ToLower(c.Store.Driver) {
	case "", "none", "sqlite":
		return nil
	case "postgres", "postgresql":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q must be sqlite, postgres or none", c.Store.Driver)}
	}
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
