package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads a configuration file (YAML or JSON, by extension) plus the
// process environment into a Config. A sibling .env file, when present, is
// loaded first so its variables participate in the merge. Environment
// variables use underscore-delimited keys (SERVICEDESCRIPTOR_SERVICEPORT).
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty source path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: source %s: %w", path, err)
	}

	if envFile := filepath.Join(filepath.Dir(path), ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load %s: %v\n", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
