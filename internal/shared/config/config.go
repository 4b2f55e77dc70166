package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	APIBaseURL           string `koanf:"api_base_url"`
	APIToken             string `koanf:"api_token"`
	APITimeout           int    `koanf:"api_timeout"`             // seconds
	APIMaxRetries        int    `koanf:"api_max_retries"`         // retries after the first attempt
	APIRequestsPerMinute int    `koanf:"api_requests_per_minute"` // token bucket refill rate
	DatabasePath         string `koanf:"database_path"`
	RedisAddr            string `koanf:"redis_addr"` // empty disables the page cache
	RedisCacheTTL        int    `koanf:"redis_cache_ttl"`
	HTTPPort             string `koanf:"http_port"`
	BatchSize            int    `koanf:"batch_size"`
	SyncBatchSize        int    `koanf:"sync_batch_size"`
	SyncMaxBatches       int    `koanf:"sync_max_batches"` // 0 = unlimited
	PollingInterval      int    `koanf:"polling_interval"` // seconds, ingestion task
	HistoryDays          int    `koanf:"history_days"`
	AppEnv               AppEnv `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		} else {
			cfg.AppEnv = AppEnvProduction
		}
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	if cfg.APIBaseURL == "" {
		return nil, apperrors.ErrMissingAPIURL
	}
	if cfg.APIToken == "" {
		return nil, apperrors.ErrMissingAPIToken
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"api_timeout":             30,
		"api_max_retries":         2,
		"api_requests_per_minute": 60,
		"database_path":           "./data/telegram-pulse.db",
		"redis_cache_ttl":         120,
		"http_port":               "8080",
		"batch_size":              100,
		"sync_batch_size":         500,
		"sync_max_batches":        0,
		"polling_interval":        180,
		"history_days":            90,
		"app_env":                 "production",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}
