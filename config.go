package asilib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds library-wide settings: where downloaded data lives and how
// the download layer behaves.
type Config struct {
	DataDir             string
	HTTPTimeout         time.Duration
	DownloadConcurrency int
	Log                 LogConfig
}

// LogConfig holds logging configuration for the CLI.
type LogConfig struct {
	Level  string
	Format string
}

// NetworkDir returns the data directory for one network, e.g.
// ~/asilib-data/rego.
func (c Config) NetworkDir(n Network) string {
	return filepath.Join(c.DataDir, strings.ToLower(string(n)))
}

// LoadConfig loads settings from defaults, an optional config file, and
// ASILIB_* environment variables, in increasing precedence.
//
// The config file is config.yaml in $HOME/.asilib, or the file named by
// ASILIB_CONFIG_PATH.
func LoadConfig() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	v.SetDefault("data_dir", filepath.Join(home, "asilib-data"))
	v.SetDefault("http_timeout", 60)
	v.SetDefault("download_concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".asilib"))

	if path := os.Getenv("ASILIB_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ASILIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	cfg := &Config{
		DataDir:             v.GetString("data_dir"),
		HTTPTimeout:         time.Duration(v.GetInt("http_timeout")) * time.Second,
		DownloadConcurrency: v.GetInt("download_concurrency"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.DownloadConcurrency < 1 {
		cfg.DownloadConcurrency = 1
	}

	return cfg, nil
}
