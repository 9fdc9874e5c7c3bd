package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bassista/go_obpdocs/internal/logger"
)

const (
	CacheBackendBolt   = "bolt"
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"

	UpstreamModeHTTP = "http"
	UpstreamModeDir  = "dir"

	// DefaultAPIVersion is the API version the explorer is built against.
	// It is also the single active version of a degraded context.
	DefaultAPIVersion = "v5.1.0"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Server   ServerConfig   `mapstructure:"server"`
	Misc     MiscConfig     `mapstructure:"misc"`
}

// APIConfig describes the OBP API the documents are fetched from.
type APIConfig struct {
	Host    string `mapstructure:"host" validate:"required,url"`
	Version string `mapstructure:"version" validate:"required"`
	Token   string `mapstructure:"token"`
}

type UpstreamConfig struct {
	Mode         string        `mapstructure:"mode" validate:"oneof=http dir"`
	Dir          string        `mapstructure:"dir"`
	Connectors   []string      `mapstructure:"connectors" validate:"min=1,dive,required"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=bolt sqlite memory"`
	Path    string `mapstructure:"path"`
}

type WorkerConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Buffer          int           `mapstructure:"buffer" validate:"gte=1"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutDownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

type MiscConfig struct {
	LogLevel          string `mapstructure:"log_level"`
	GinMode           string `mapstructure:"gin_mode"`
	HoneybadgerAPIKey string `mapstructure:"honeybadger_api_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "")
	v.SetDefault("api.version", DefaultAPIVersion)
	v.SetDefault("api.token", "")
	v.SetDefault("upstream.mode", UpstreamModeHTTP)
	v.SetDefault("upstream.dir", "./data/docs")
	v.SetDefault("upstream.connectors", []string{"akka_vDec2018"})
	v.SetDefault("upstream.fetch_timeout", 0)
	v.SetDefault("cache.backend", CacheBackendBolt)
	v.SetDefault("cache.path", "./data/cache/obp-docs.db")
	v.SetDefault("worker.refresh_interval", time.Hour)
	v.SetDefault("worker.buffer", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 2*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")
	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.honeybadger_api_key", "")
}

// LoadConfig reads config.yaml from confPath (optional), a .env file in the
// working directory (optional) and OBP_DOCS_* environment variables.
// Environment wins over the file, e.g. OBP_DOCS_API_HOST overrides api.host.
func LoadConfig(confPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if confPath != "" {
		v.AddConfigPath(confPath)
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("OBP_DOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Info("No config file found, using defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// The UI build historically received the host as VITE_OBP_API_HOST.
	if cfg.API.Host == "" {
		cfg.API.Host = os.Getenv("VITE_OBP_API_HOST")
	}
	cfg.API.Host = strings.TrimRight(cfg.API.Host, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Worker.RefreshInterval <= 0 {
		return errors.New("worker.refresh_interval must be positive")
	}
	if c.Upstream.Mode == UpstreamModeDir && c.Upstream.Dir == "" {
		return errors.New("upstream.dir is required when upstream.mode is dir")
	}
	if c.Cache.Backend != CacheBackendMemory && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required for backend %q", c.Cache.Backend)
	}
	return nil
}
