package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corvusdb/corvus-go/internal/auth"
	"github.com/corvusdb/corvus-go/internal/logging"
	"github.com/corvusdb/corvus-go/pkg/transport"
)

// cliConfig is the effective corvusctl configuration, merged from defaults,
// an optional YAML file, CORVUS_* environment variables, and flags.
type cliConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
	Auth    authConfig    `mapstructure:"auth"`
	Logging loggingConfig `mapstructure:"logging"`
}

type authConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type loggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// loadConfig builds the effective configuration for one command invocation.
func loadConfig(cmd *cobra.Command) (*cliConfig, error) {
	v := viper.New()
	v.SetConfigName("corvusctl")
	v.SetConfigType("yaml")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.corvusdb")
		v.AddConfigPath("/etc/corvusdb")
	}

	v.SetDefault("addr", "localhost:27717")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.AutomaticEnv()
	v.SetEnvPrefix("CORVUS")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Flags override everything else.
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		v.Set("addr", addr)
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout != 0 {
		v.Set("timeout", timeout)
	}

	var config cliConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// transportConfig translates the CLI configuration into a transport one.
func (c *cliConfig) transportConfig() transport.Config {
	cfg := transport.Config{
		Logger: logging.New(logging.Config{
			Level:  logging.ParseLevel(c.Logging.Level, slog.LevelWarn),
			Format: c.Logging.Format,
		}),
	}
	if c.Auth.Username != "" {
		cfg.Credential = &auth.Credential{
			Username: c.Auth.Username,
			Password: c.Auth.Password,
		}
	}
	return cfg
}
