// internal/detector/detector_test.go
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/config"
	"github.com/solscout/curvewatch/internal/graduation"
	"github.com/solscout/curvewatch/internal/raydium"
)

func newPriceServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"outAmount":"150000000"}`))
	}))
}

func testConfig(t *testing.T, poolURLs []string, priceURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoints = poolURLs
	cfg.JupiterURL = priceURL
	cfg.CacheFile = filepath.Join(t.TempDir(), "pools_cache.json")
	return cfg
}

func samplePairBody() string {
	return fmt.Sprintf(`[{"ammId":"58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2","baseMint":%q,"quoteMint":%q,"baseReserve":50000000000,"quoteReserve":80000000000}]`,
		raydium.WrappedSolMint, raydium.USDCMint)
}

func TestGetCandidatesScenario(t *testing.T) {
	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePairBody()))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	det, err := New(testConfig(t, []string{pools.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)

	candidates := det.GetCandidates(context.Background(), 1)
	require.Len(t, candidates, 1)

	c := candidates[0]
	// 50_000_000_000 lamports на SOL-стороне -> 50 SOL.
	assert.InDelta(t, 50.0, c.EstimatedSolReserves, 0.001)
	assert.InDelta(t, 58.8, c.ProgressPct, 0.1)
	assert.Equal(t, graduation.StageMomentumBuilding, c.Stage)
	assert.InDelta(t, 35.0, c.SolRemaining, 0.001)
	assert.True(t, c.NeedsEnrichment)
	assert.Equal(t, raydium.USDCMint, c.TokenAddress)
	// 50 SOL * 2 стороны * $150.
	assert.InDelta(t, 15000.0, c.MarketCapUsd, 0.1)
}

func TestGetPoolsCacheIdempotence(t *testing.T) {
	var requests int64
	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(samplePairBody()))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	det, err := New(testConfig(t, []string{pools.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)

	first := det.GetPools(context.Background(), 10)
	second := det.GetPools(context.Background(), 10)

	// Повторный вызов в пределах TTL: тот же результат, ноль новых
	// сетевых запросов.
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&requests))
	assert.Equal(t, uint64(1), det.GetStats().Cache.Hits)
}

func TestGetPoolsNeverEmpty(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	price := newPriceServer(t)
	defer price.Close()

	det, err := New(testConfig(t, []string{bad.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)

	// Все endpoint'ы и оба уровня кэша пусты — возвращается
	// минимальный hardcoded набор, не ошибка.
	pools := det.GetPools(context.Background(), 10)
	require.NotEmpty(t, pools)
	assert.Equal(t, "fallback", pools[0].Source)
	assert.Equal(t, raydium.USDCMint, pools[0].TokenAddress)
}

func TestGetPoolsServedFromDiskCache(t *testing.T) {
	var requests int64
	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(`[]`))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	cfg := testConfig(t, []string{pools.URL}, price.URL)

	// Дисковый снимок двухминутной давности при TTL в три минуты.
	env := map[string]interface{}{
		"schemaVersion": 1,
		"fetchedAt":     time.Now().Add(-2 * time.Minute),
		"pools": []raydium.PoolRecord{{
			PoolID:       "disk-pool",
			BaseMint:     raydium.WrappedSolMint,
			QuoteMint:    raydium.USDCMint,
			TokenAddress: raydium.USDCMint,
			Source:       "pairs",
		}},
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.CacheFile, data, 0o644))

	det, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	got := det.GetPools(context.Background(), 10)
	require.Len(t, got, 1)
	assert.Equal(t, "disk-pool", got[0].PoolID)
	// Кэш валиден — ни одного HTTP-запроса.
	assert.Equal(t, int64(0), atomic.LoadInt64(&requests))
	assert.Equal(t, uint64(1), det.GetStats().Cache.Hits)
}

func TestTimedOutFetchCounted(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(samplePairBody()))
	}))
	defer slow.Close()
	price := newPriceServer(t)
	defer price.Close()

	cfg := testConfig(t, []string{slow.URL}, price.URL)
	cfg.FastTimeoutSec = 1

	det, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	// Endpoint не укладывается в быстрый таймаут: результат — fallback,
	// а таймаут попадает в счетчик статистики.
	pools := det.GetPools(context.Background(), 5)
	require.NotEmpty(t, pools)
	assert.Equal(t, "fallback", pools[0].Source)
	assert.Equal(t, uint64(1), det.GetStats().Timeouts)
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(samplePairBody()))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	cfg := testConfig(t, []string{pools.URL}, price.URL)
	cfg.BreakerThreshold = 2

	det, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	det.GetPools(context.Background(), 5)
	assert.False(t, det.GetStats().Breaker.Open)

	det.GetPools(context.Background(), 5)
	stats := det.GetStats()
	assert.True(t, stats.Breaker.Open)
	assert.True(t, stats.Breaker.HighLoad)
	assert.Equal(t, 2, stats.Breaker.ConsecutiveFailures)

	// Один полностью успешный fetch закрывает breaker.
	failing.Store(false)
	got := det.GetPools(context.Background(), 5)
	require.NotEmpty(t, got)

	stats = det.GetStats()
	assert.False(t, stats.Breaker.Open)
	assert.False(t, stats.Breaker.HighLoad)
	assert.Equal(t, 0, stats.Breaker.ConsecutiveFailures)
}

func TestCandidatesSortedByProgress(t *testing.T) {
	body := fmt.Sprintf(`[
		{"ammId":"low","baseMint":%q,"quoteMint":%q,"baseReserve":5000000000,"quoteReserve":1},
		{"ammId":"high","baseMint":%q,"quoteMint":%q,"baseReserve":70000000000,"quoteReserve":1},
		{"ammId":"mid","baseMint":%q,"quoteMint":%q,"baseReserve":30000000000,"quoteReserve":1}
	]`,
		raydium.WrappedSolMint, raydium.USDCMint,
		raydium.WrappedSolMint, raydium.RaydiumAMMProgramID,
		raydium.WrappedSolMint, raydium.USDCMint)

	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	det, err := New(testConfig(t, []string{pools.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)

	candidates := det.GetCandidates(context.Background(), 10)
	require.Len(t, candidates, 3)
	assert.Equal(t, "high", candidates[0].PoolID)
	assert.Equal(t, "mid", candidates[1].PoolID)
	assert.Equal(t, "low", candidates[2].PoolID)
}

func TestGetStatsShape(t *testing.T) {
	pools := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePairBody()))
	}))
	defer pools.Close()
	price := newPriceServer(t)
	defer price.Close()

	det, err := New(testConfig(t, []string{pools.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)

	det.GetPools(context.Background(), 5)

	stats := det.GetStats()
	assert.NotEmpty(t, stats.InstanceID)
	assert.Equal(t, "heuristic", stats.EstimatorMode)
	assert.False(t, stats.Breaker.Open)

	// Независимые экземпляры несут независимое состояние.
	other, err := New(testConfig(t, []string{pools.URL}, price.URL), zap.NewNop())
	require.NoError(t, err)
	assert.NotEqual(t, stats.InstanceID, other.GetStats().InstanceID)
	assert.Equal(t, uint64(0), other.GetStats().Cache.Hits)
}
