package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type CoinMarketCap struct {
	APIKey                string `json:"api_key" yaml:"api_key"`
	BaseURL               string `json:"base_url" yaml:"base_url"`
	Convert               string `json:"convert" yaml:"convert"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                 int    `json:"burst" yaml:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

// Redis configures the optional listing snapshot. Empty Addr disables it.
type Redis struct {
	Addr               string `json:"addr" yaml:"addr"`
	Password           string `json:"password" yaml:"password"`
	DB                 int    `json:"db" yaml:"db"`
	ListingCacheTTLSec int    `json:"listing_cache_ttl_sec" yaml:"listing_cache_ttl_sec"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Config struct {
	Server        Server        `json:"server" yaml:"server"`
	CoinMarketCap CoinMarketCap `json:"coinmarketcap" yaml:"coinmarketcap"`
	Redis         Redis         `json:"redis" yaml:"redis"`
	Log           Log           `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		CoinMarketCap: CoinMarketCap{
			BaseURL: "https://pro-api.coinmarketcap.com",
			Convert: "USD",
			Burst:   1,
		},
		Redis: Redis{ListingCacheTTLSec: 86400},
		Log:   Log{Level: "info", Format: "text"},
	}
}

// Load reads config from path (JSON, or YAML for .yaml/.yml). If path is empty,
// config.json and then config.yaml in the working directory are tried; a
// missing file means defaults. Variables from .env are loaded without
// overriding the real environment, then environment variables override
// select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	envFile := os.Getenv("DOTENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", envFile, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x >= 0 {
		cfg.Server.RequestTimeoutSec = x
	}

	if v := os.Getenv("COINMARKETCAP_API_KEY"); v != "" {
		cfg.CoinMarketCap.APIKey = v
	}
	if v := os.Getenv("COINMARKETCAP_BASE_URL"); v != "" {
		cfg.CoinMarketCap.BaseURL = v
	}
	if v := os.Getenv("CONVERT"); v != "" {
		cfg.CoinMarketCap.Convert = strings.ToUpper(v)
	}
	if x, ok := envInt("CMC_MAX_RPM"); ok && x >= 0 {
		cfg.CoinMarketCap.MaxRequestsPerMinute = x
	}
	if x, ok := envInt("CMC_BURST"); ok && x > 0 {
		cfg.CoinMarketCap.Burst = x
	}
	if x, ok := envInt("CMC_MIN_INTERVAL_SEC"); ok && x >= 0 {
		cfg.CoinMarketCap.MinRequestIntervalSec = x
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if x, ok := envInt("REDIS_DB"); ok && x >= 0 {
		cfg.Redis.DB = x
	}
	if x, ok := envInt("LISTING_CACHE_TTL_SEC"); ok && x > 0 {
		cfg.Redis.ListingCacheTTLSec = x
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return 0, false
	}
	return x, true
}
