// internal/config/config.go
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config описывает все настройки детектора.
type Config struct {
	Endpoints           []string `mapstructure:"endpoints"`
	RPCList             []string `mapstructure:"rpc_list"`
	FastTimeoutSec      int      `mapstructure:"fast_timeout_sec"`
	FallbackTimeoutSec  int      `mapstructure:"fallback_timeout_sec"`
	CacheTTLSec         int      `mapstructure:"cache_ttl_sec"`
	CacheFile           string   `mapstructure:"cache_file"`
	BreakerThreshold    int      `mapstructure:"breaker_threshold"`
	EstimatorMode       string   `mapstructure:"estimator_mode"`
	MaxPools            int      `mapstructure:"max_pools"`
	AnalysisConcurrency int      `mapstructure:"analysis_concurrency"`
	MinReserveSol       float64  `mapstructure:"min_reserve_sol"`
	PriceTTLSec         int      `mapstructure:"price_ttl_sec"`
	JupiterURL          string   `mapstructure:"jupiter_url"`
	ScanIntervalSec     int      `mapstructure:"scan_interval_sec"`
	DebugLogging        bool     `mapstructure:"debug_logging"`
	LogFile             string   `mapstructure:"log_file"`
}

// Режимы оценки резервов.
const (
	ModeHeuristic = "heuristic"
	ModeAccurate  = "accurate"
)

const (
	DefaultFastTimeoutSec      = 8
	DefaultFallbackTimeoutSec  = 30
	DefaultCacheTTLSec         = 180
	DefaultBreakerThreshold    = 3
	DefaultMaxPools            = 100
	DefaultAnalysisConcurrency = 5
	DefaultPriceTTLSec         = 60
	DefaultScanIntervalSec     = 60
	DefaultMinReserveSol       = 0.05
	DefaultCacheFile           = "/tmp/raydium_pools_cache.json"
)

// LoadConfig читает конфигурацию из файла и переменных окружения.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"fast_timeout_sec":     DefaultFastTimeoutSec,
		"fallback_timeout_sec": DefaultFallbackTimeoutSec,
		"cache_ttl_sec":        DefaultCacheTTLSec,
		"cache_file":           DefaultCacheFile,
		"breaker_threshold":    DefaultBreakerThreshold,
		"estimator_mode":       ModeHeuristic,
		"max_pools":            DefaultMaxPools,
		"analysis_concurrency": DefaultAnalysisConcurrency,
		"min_reserve_sol":      DefaultMinReserveSol,
		"price_ttl_sec":        DefaultPriceTTLSec,
		"scan_interval_sec":    DefaultScanIntervalSec,
		"rpc_list":             []string{"https://api.mainnet-beta.solana.com"},
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, Validate(&cfg)
}

// Default возвращает конфигурацию по умолчанию (без чтения файла).
// Используется в тестах и при встраивании детектора как библиотеки.
func Default() *Config {
	return &Config{
		RPCList:             []string{"https://api.mainnet-beta.solana.com"},
		FastTimeoutSec:      DefaultFastTimeoutSec,
		FallbackTimeoutSec:  DefaultFallbackTimeoutSec,
		CacheTTLSec:         DefaultCacheTTLSec,
		CacheFile:           DefaultCacheFile,
		BreakerThreshold:    DefaultBreakerThreshold,
		EstimatorMode:       ModeHeuristic,
		MaxPools:            DefaultMaxPools,
		AnalysisConcurrency: DefaultAnalysisConcurrency,
		MinReserveSol:       DefaultMinReserveSol,
		PriceTTLSec:         DefaultPriceTTLSec,
		ScanIntervalSec:     DefaultScanIntervalSec,
	}
}

// Validate проверяет корректность конфигурации.
func Validate(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	for _, ep := range cfg.Endpoints {
		if err := validateURLWithCache(ep, "http"); err != nil {
			return errors.New("invalid endpoint URL: " + ep)
		}
	}
	if cfg.JupiterURL != "" {
		if err := validateURLWithCache(cfg.JupiterURL, "http"); err != nil {
			return errors.New("invalid jupiter_url")
		}
	}
	if cfg.EstimatorMode != ModeHeuristic && cfg.EstimatorMode != ModeAccurate {
		return errors.New("estimator_mode must be heuristic or accurate")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.FastTimeoutSec <= 0 || cfg.FallbackTimeoutSec <= 0 {
		return errors.New("invalid timeout")
	}
	if cfg.CacheTTLSec <= 0 {
		return errors.New("invalid cache_ttl_sec")
	}
	if cfg.BreakerThreshold < 1 || cfg.BreakerThreshold > 10 {
		return errors.New("breaker_threshold must be in [1, 10]")
	}
	if cfg.MaxPools <= 0 {
		return errors.New("invalid max_pools")
	}
	if cfg.AnalysisConcurrency <= 0 {
		return errors.New("invalid analysis_concurrency")
	}
	if cfg.MinReserveSol < 0 {
		return errors.New("invalid min_reserve_sol")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("CURVEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if mode := v.GetString("ESTIMATOR_MODE"); mode != "" {
		cfg.EstimatorMode = mode
	}
	if file := v.GetString("CACHE_FILE"); file != "" {
		cfg.CacheFile = file
	}
}
