// Package config loads service configuration from an optional YAML file and
// TABSETTLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mmynk/tabsettle/internal/money"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	// Path is the SQLite file. Empty or ":memory:" keeps tabs in process memory.
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	// Addr empty keeps the pending index in process memory.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	// URL empty disables the message bus.
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

type AuthConfig struct {
	// JWTSecret empty disables authentication.
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SettlementConfig struct {
	Epsilon       string        `mapstructure:"epsilon"`
	PendingTTL    time.Duration `mapstructure:"pending_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Settlement SettlementConfig `mapstructure:"settlement"`

	// Assets adds or overrides settlement assets, symbol -> decimals.
	Assets map[string]int32 `mapstructure:"assets"`

	// Members maps member IDs to payout addresses for tabs created without them.
	Members map[string]string `mapstructure:"members"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./data/tabs.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.name", "tabsettle")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("settlement.epsilon", "0.01")
	v.SetDefault("settlement.pending_ttl", "24h")
	v.SetDefault("settlement.sweep_interval", "10m")
}

// Load reads configuration from path, or from ./config.yaml when path is
// empty and that file exists. Environment variables override file values,
// e.g. TABSETTLE_SERVER_PORT=9000 or TABSETTLE_REDIS_ADDR=localhost:6379.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("TABSETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	eps, err := c.Epsilon()
	if err != nil {
		return err
	}
	if !eps.IsPositive() {
		return fmt.Errorf("settlement.epsilon must be positive, got %s", eps)
	}
	for sym, d := range c.Assets {
		if d < 0 || d > 36 {
			return fmt.Errorf("assets.%s: decimals %d out of range", sym, d)
		}
	}
	return nil
}

// Epsilon returns the settled-balance threshold.
func (c *Config) Epsilon() (decimal.Decimal, error) {
	eps, err := money.Parse(c.Settlement.Epsilon)
	if err != nil {
		return decimal.Zero, fmt.Errorf("settlement.epsilon: %w", err)
	}
	return eps, nil
}

// AssetDecimals returns the built-in assets merged with configured ones.
func (c *Config) AssetDecimals() map[string]int32 {
	out := make(map[string]int32, len(money.DefaultAssets)+len(c.Assets))
	for sym, d := range money.DefaultAssets {
		out[sym] = d
	}
	for sym, d := range c.Assets {
		out[strings.ToUpper(sym)] = d
	}
	return out
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
