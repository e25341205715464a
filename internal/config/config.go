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
	Geonames GeonamesConfig `yaml:"geonames" mapstructure:"geonames"`
	Getty    GettyConfig    `yaml:"getty" mapstructure:"getty"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Password    string `yaml:"password" mapstructure:"password"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GeonamesConfig holds GeoNames web-service settings.
type GeonamesConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Username    string `yaml:"username" mapstructure:"username"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GettyConfig holds Getty TGN scrape settings.
type GettyConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig tunes the resolution pipeline.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names predating the ATLAS_ prefix.
	bindLegacyEnv(v, "server.port", "PORT")
	bindLegacyEnv(v, "store.database_url", "DB_REMOTE")
	bindLegacyEnv(v, "store.password", "DB_PWD")
	bindLegacyEnv(v, "log.level", "SVC_API_LOG")

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "atlas.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("geonames.base_url", "http://api.geonames.org")
	v.SetDefault("geonames.username", "skyview")
	v.SetDefault("geonames.timeout_secs", 20)
	v.SetDefault("getty.base_url", "https://www.getty.edu/vow")
	v.SetDefault("getty.timeout_secs", 110)
	v.SetDefault("search.default_limit", 75)

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

// Validate checks the settings a given mode actually needs; serve needs
// a listening port, any postgres-backed mode needs a database URL.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		problems = append(problems, c.storeProblems()...)
	case "search", "initdb":
		problems = append(problems, c.storeProblems()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required"}
		}
	default:
		return []string{"store.driver must be postgres or sqlite"}
	}
	return nil
}

func bindLegacyEnv(v *viper.Viper, key, env string) {
	// BindEnv only errors on an empty key.
	_ = v.BindEnv(key, env)
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
