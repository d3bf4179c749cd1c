package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures the tailorctl command line client
type ClientConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ShippingFee  string        `mapstructure:"shipping_fee"`
	Email        string        `mapstructure:"email"`
	Password     string        `mapstructure:"password"`
	Role         string        `mapstructure:"role"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LogLevel     string        `mapstructure:"log_level"`
}

// LoadClient reads tailorctl.yaml from path (or the given file when path
// names one) and TAILORCTL_* environment variables. A missing file is not an error.
func LoadClient(path string) (*ClientConfig, error) {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("timeout", "10s")
	v.SetDefault("shipping_fee", "10")
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("role", "user")
	v.SetDefault("poll_interval", "30s")
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("TAILORCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("tailorctl")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read client config: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the client configuration is usable
func (c *ClientConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Role != "user" && c.Role != "tailor" {
		return fmt.Errorf("role must be user or tailor, got %q", c.Role)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
