package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds server configuration settings.
type Config struct {
	Host           string        `mapstructure:"host"`            // Server host address
	Port           int           `mapstructure:"port"`            // Server port
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`    // HTTP read timeout
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`   // HTTP write timeout
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`    // HTTP idle timeout
	MaxRequestSize int64         `mapstructure:"max_request_size"` // Maximum request body size in bytes
	EnableLogging  bool          `mapstructure:"enable_logging"`  // Enable request logging
	LogLevel       string        `mapstructure:"log_level"`       // DEBUG, INFO, WARN, ERROR
	LogFormat      string        `mapstructure:"log_format"`      // text or json

	// Authentication. When enabled, every request must carry basic auth
	// credentials for a user in Users.
	EnableAuth bool         `mapstructure:"enable_auth"`
	Users      []UserConfig `mapstructure:"users"`
}

// UserConfig declares one credential in the configuration.
type UserConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Role     string `mapstructure:"role"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		EnableLogging:  true,
		LogLevel:       "INFO",
		LogFormat:      "text",
		EnableAuth:     false,
	}
}

// LoadConfig builds a Config from defaults, an optional config file, and
// TUPLEDB_-prefixed environment variables, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("read_timeout", defaults.ReadTimeout)
	v.SetDefault("write_timeout", defaults.WriteTimeout)
	v.SetDefault("idle_timeout", defaults.IdleTimeout)
	v.SetDefault("max_request_size", defaults.MaxRequestSize)
	v.SetDefault("enable_logging", defaults.EnableLogging)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("enable_auth", defaults.EnableAuth)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TUPLEDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
