package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Share   ShareConfig   `mapstructure:"share"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Rank    RankConfig    `mapstructure:"rank"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	Pooled       bool          `mapstructure:"pooled"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// CatalogConfig points at the section listing the server answers queries on
type CatalogConfig struct {
	Path      string `mapstructure:"path"`
	Format    string `mapstructure:"format"`    // json or csv
	Delimiter string `mapstructure:"delimiter"` // csv only, a single character
}

type ShareConfig struct {
	Backend   string        `mapstructure:"backend"` // memory or redis
	KeyLength int           `mapstructure:"key_length"`
	TTL       time.Duration `mapstructure:"ttl"` // Zero keeps shared combinations forever
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FilterConfig struct {
	MaxCodes         int      `mapstructure:"max_codes"`
	ForbiddenCodes   []string `mapstructure:"forbidden_codes"`
	ForbiddenInfixes []string `mapstructure:"forbidden_infixes"`
}

type RankConfig struct {
	Limit int `mapstructure:"limit"` // Zero returns every combination
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration with precedence: environment (COMB_*) > file > defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	//** Defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.query_timeout", "10s")
	v.SetDefault("server.pooled", true)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("catalog.path", "catalog.json")
	v.SetDefault("catalog.format", "json")
	v.SetDefault("catalog.delimiter", ",")

	v.SetDefault("share.backend", "memory")
	v.SetDefault("share.key_length", 7)
	v.SetDefault("share.ttl", "0s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("filter.max_codes", 10)
	v.SetDefault("filter.forbidden_codes", []string{"HL471", "HL302"})
	v.SetDefault("filter.forbidden_infixes", []string{"900"})

	v.SetDefault("rank.limit", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	//** Configuration file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	//** Environment
	v.SetEnvPrefix("COMB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Without a configuration file only defaults and environment apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("cannot read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("invalid configuration: server.addr cannot be empty")
	}
	if c.Server.QueryTimeout <= 0 {
		return fmt.Errorf("invalid configuration: server.query_timeout must be positive")
	}
	if c.Catalog.Format != "json" && c.Catalog.Format != "csv" {
		return fmt.Errorf("invalid configuration: catalog.format must be json or csv, got %q", c.Catalog.Format)
	}
	if c.Catalog.Format == "csv" && len([]rune(c.Catalog.Delimiter)) != 1 {
		return fmt.Errorf("invalid configuration: catalog.delimiter must be a single character")
	}
	if c.Share.Backend != "memory" && c.Share.Backend != "redis" {
		return fmt.Errorf("invalid configuration: share.backend must be memory or redis, got %q", c.Share.Backend)
	}
	if c.Share.KeyLength < 4 {
		return fmt.Errorf("invalid configuration: share.key_length must be at least 4")
	}
	if c.Filter.MaxCodes <= 0 {
		return fmt.Errorf("invalid configuration: filter.max_codes must be positive")
	}
	if c.Rank.Limit < 0 {
		return fmt.Errorf("invalid configuration: rank.limit cannot be negative")
	}
	return nil
}

// DelimiterRune returns the csv delimiter as a rune
func (c *CatalogConfig) DelimiterRune() rune {
	runes := []rune(c.Delimiter)
	if len(runes) == 0 {
		return ','
	}
	return runes[0]
}
