// internal/detector/detector.go

// Package detector собирает обнаружение пулов, кэширование, circuit
// breaker и оценку резервов в один фасад с тремя публичными входами:
// GetPools, GetCandidates, GetStats. Ожидаемые сбои (сеть, таймауты,
// кривой JSON) наружу не выходят — вызывающий всегда получает список,
// пусть и деградированный.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/breaker"
	"github.com/solscout/curvewatch/internal/cache"
	"github.com/solscout/curvewatch/internal/config"
	"github.com/solscout/curvewatch/internal/estimator"
	"github.com/solscout/curvewatch/internal/jupiter"
	"github.com/solscout/curvewatch/internal/raydium"
	solbc "github.com/solscout/curvewatch/pkg/blockchain/solana"
)

// Detector владеет всем изменяемым состоянием подсистемы. Никаких
// синглтонов: каждый экземпляр несет собственные кэш и breaker, тесты
// конструируют независимые экземпляры.
type Detector struct {
	cfg      *config.Config
	logger   *zap.Logger
	fetcher  *raydium.Fetcher
	cache    *cache.PoolCache
	breaker  *breaker.Breaker
	strategy estimator.Strategy
	price    *jupiter.PriceClient

	instanceID     string
	timeouts       uint64
	lastFetchNanos int64
}

// New собирает детектор по конфигурации.
func New(cfg *config.Config, logger *zap.Logger) (*Detector, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fastTimeout := time.Duration(cfg.FastTimeoutSec) * time.Second
	fallbackTimeout := time.Duration(cfg.FallbackTimeoutSec) * time.Second

	endpoints := raydium.DefaultEndpoints(fastTimeout, fallbackTimeout)
	if len(cfg.Endpoints) > 0 {
		endpoints = customEndpoints(cfg.Endpoints, fastTimeout)
	}

	httpClient := raydium.NewClient(logger)
	fetcher := raydium.NewFetcher(httpClient, endpoints, logger)

	poolCache := cache.NewPoolCache(
		time.Duration(cfg.CacheTTLSec)*time.Second,
		cfg.CacheFile,
		logger,
	)

	var strategy estimator.Strategy
	switch cfg.EstimatorMode {
	case config.ModeAccurate:
		rpcClient, err := solbc.NewClient(cfg.RPCList, logger)
		if err != nil {
			return nil, fmt.Errorf("build rpc client: %w", err)
		}
		strategy = estimator.NewAccurate(rpcClient, logger)
	default:
		strategy = estimator.NewHeuristic(logger)
	}

	return &Detector{
		cfg:        cfg,
		logger:     logger.Named("detector"),
		fetcher:    fetcher,
		cache:      poolCache,
		breaker:    breaker.New(cfg.BreakerThreshold, logger),
		strategy:   strategy,
		price:      jupiter.NewPriceClient(cfg.JupiterURL, time.Duration(cfg.PriceTTLSec)*time.Second, logger),
		instanceID: uuid.New().String(),
	}, nil
}

// customEndpoints строит каскад из переопределенного списка URL.
// Первый URL считается быстрым основным, остальные — медленными
// запасными (в degraded-режиме пропускаются).
func customEndpoints(urls []string, timeout time.Duration) []raydium.Endpoint {
	endpoints := make([]raydium.Endpoint, 0, len(urls))
	for i, u := range urls {
		endpoints = append(endpoints, raydium.Endpoint{
			Name:    fmt.Sprintf("custom-%d", i),
			URL:     u,
			Timeout: timeout,
			Slow:    i > 0,
		})
	}
	return endpoints
}

// GetPools возвращает SOL-пары, проходя лестницу fallback'ов:
// валидная память -> свежий fetch -> диск -> просроченная память ->
// минимальный hardcoded набор. Ошибок не возвращает.
func (d *Detector) GetPools(ctx context.Context, maxCount int) []raydium.PoolRecord {
	if maxCount <= 0 {
		maxCount = d.cfg.MaxPools
	}

	multiplier := d.breaker.TTLMultiplier()
	if pools, ok := d.cache.Get(multiplier); ok {
		return clampPools(pools, maxCount)
	}

	start := time.Now()
	pools, err := d.fetcher.FetchSolPools(ctx, maxCount, d.breaker.IsOpen())
	atomic.StoreInt64(&d.lastFetchNanos, int64(time.Since(start)))

	if err == nil {
		d.breaker.RecordSuccess()
		d.cache.Set(pools)
		return clampPools(pools, maxCount)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		atomic.AddUint64(&d.timeouts, 1)
	}
	d.breaker.RecordFailure()
	d.logger.Warn("fetch failed, walking fallback ladder", zap.Error(err))

	if pools, ok := d.cache.RefreshFromDisk(multiplier); ok {
		return clampPools(pools, maxCount)
	}
	if pools, ok := d.cache.GetExpired(); ok {
		return clampPools(pools, maxCount)
	}

	d.logger.Error("all endpoints and cache tiers failed, serving minimal fallback")
	return raydium.MinimalFallbackPools()
}

func clampPools(pools []raydium.PoolRecord, maxCount int) []raydium.PoolRecord {
	if maxCount > 0 && len(pools) > maxCount {
		return pools[:maxCount]
	}
	return pools
}
