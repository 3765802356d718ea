package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	OwnerKey       string `mapstructure:"owner_key"`
	OwnerName      string `mapstructure:"owner_name"`
	SessionHours   int    `mapstructure:"session_hours"`
	WarningMinutes int    `mapstructure:"warning_minutes"`
	SecureCookie   bool   `mapstructure:"secure_cookie"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  bool           `mapstructure:"metrics"`
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// If path is empty it looks for config.yaml in the working directory.
// Environment variables prefixed with SALON_ override file values,
// e.g. SALON_SERVER_PORT=9000.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "salon.db")
	// Registered empty so the SALON_AUTH_OWNER_KEY env override is seen
	// by Unmarshal even without a config file.
	v.SetDefault("auth.owner_key", "")
	v.SetDefault("auth.owner_name", "Owner")
	v.SetDefault("auth.session_hours", 24)
	v.SetDefault("auth.warning_minutes", 10)
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics", true)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SALON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env must still work.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Auth.OwnerKey == "" {
		return nil, fmt.Errorf("auth.owner_key must be set")
	}
	if c.Auth.SessionHours <= 0 {
		return nil, fmt.Errorf("auth.session_hours must be positive")
	}

	return &c, nil
}
