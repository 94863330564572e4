// ====================================
// File: cmd/detector/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/config"
	"github.com/solscout/curvewatch/internal/detector"
	"github.com/solscout/curvewatch/internal/logx"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// Логгер еще не собран — падаем через временный.
		fallback, _ := zap.NewDevelopment()
		fallback.Fatal("Failed to load config", zap.Error(err))
	}

	logCfg := logx.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	logger, err := logx.New(logCfg)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting bonding curve detector",
		zap.String("estimator_mode", cfg.EstimatorMode),
		zap.Int("max_pools", cfg.MaxPools))

	det, err := detector.New(cfg, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to build detector", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.ScanIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scan(ctx, det, logger.Logger)

	for {
		select {
		case <-ticker.C:
			scan(ctx, det, logger.Logger)
		case sig := <-sigCh:
			logger.Info("Shutting down", zap.String("signal", sig.String()))
			cancel()
			return
		}
	}
}

func scan(ctx context.Context, det *detector.Detector, logger *zap.Logger) {
	candidates := det.GetCandidates(ctx, 10)
	for i, c := range candidates {
		logger.Info("candidate",
			zap.Int("rank", i+1),
			zap.String("token", c.TokenAddress),
			zap.String("pool_id", c.PoolID),
			zap.Float64("sol_reserves", c.EstimatedSolReserves),
			zap.Float64("progress_pct", c.ProgressPct),
			zap.String("stage", string(c.Stage)),
			zap.Float64("confidence", c.Confidence),
			zap.String("method", c.EstimationMethod))
	}

	stats := det.GetStats()
	logger.Info("scan complete",
		zap.Uint64("cache_hits", stats.Cache.Hits),
		zap.Uint64("cache_misses", stats.Cache.Misses),
		zap.Uint64("timeouts", stats.Timeouts),
		zap.Bool("breaker_open", stats.Breaker.Open),
		zap.Int64("last_fetch_ms", stats.LastFetchMs))
}
