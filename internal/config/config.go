package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Auth struct {
		// Issuer is the expected "iss" claim value for this deployment.
		Issuer string `mapstructure:"issuer"`
		// Audience is the API's registered identifier, checked against "aud".
		Audience string `mapstructure:"audience"`
		// JWKSURL is the signing key discovery endpoint.
		JWKSURL string `mapstructure:"jwks_url"`
		// KeySetTTL bounds how long a fetched key set is trusted before refetch.
		KeySetTTL time.Duration `mapstructure:"key_set_ttl"`
		// RefreshTimeout bounds a single key discovery call.
		RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
		ClockSkew      time.Duration `mapstructure:"clock_skew"`
	} `mapstructure:"auth"`

	// Roles maps an application role or scope name to the permissions it grants.
	Roles map[string][]string `mapstructure:"roles"`

	Tenants struct {
		// Source selects the tenant catalog backend: "static" or "redis".
		Source string `mapstructure:"source"`
		// Static holds tenant id -> datastore entries when Source is "static".
		Static map[string]TenantEntry `mapstructure:"static"`
		Redis  struct {
			URL       string `mapstructure:"url"`
			PoolSize  int    `mapstructure:"pool_size"`
			KeyPrefix string `mapstructure:"key_prefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"tenants"`

	Observability struct {
		TraceEnabled       bool   `mapstructure:"trace_enabled"`
		TracingEndpointURL string `mapstructure:"tracing_endpoint_url"`
		LogLevel           string `mapstructure:"log_level"`
		Format             string `mapstructure:"log_format"`
		LogSource          bool   `mapstructure:"log_source"`
	} `mapstructure:"observability"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
}

// TenantEntry describes one tenant's datastore target in static configuration.
type TenantEntry struct {
	DatastoreName string `mapstructure:"datastore_name"`
	DSN           string `mapstructure:"dsn"`
	DatastoreRole string `mapstructure:"datastore_role"`
}

func MustLoad() *Config {
	v := viper.New()

	logger := slog.Default()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("TENANT_AUTH_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		logger.Error("Failed to read config", slog.Any("error", err))
		os.Exit(1)
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			logger.Info("No environment-specific config (optional)", slog.String("env", env))
		}
		logger.Info("Environment-specific config loaded", slog.String("env", env))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Error("Failed to unmarshal config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("auth.key_set_ttl", "15m")
	v.SetDefault("auth.refresh_timeout", "5s")
	v.SetDefault("auth.clock_skew", "30s")
	v.SetDefault("tenants.source", "static")
	v.SetDefault("tenants.redis.key_prefix", "tenant:datastore:")
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
}

// Validate rejects configurations that cannot produce a working gate.
func (c *Config) Validate() error {
	if c.Auth.Issuer == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if c.Auth.Audience == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url is required")
	}
	switch c.Tenants.Source {
	case "static":
		if len(c.Tenants.Static) == 0 {
			return fmt.Errorf("tenants.static must not be empty when tenants.source is static")
		}
	case "redis":
		if c.Tenants.Redis.URL == "" {
			return fmt.Errorf("tenants.redis.url is required when tenants.source is redis")
		}
	default:
		return fmt.Errorf("tenants.source must be static or redis, got %q", c.Tenants.Source)
	}
	return nil
}
