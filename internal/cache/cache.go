// internal/cache/cache.go
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/raydium"
)

// PoolCache — двухуровневый TTL-кэш списка пулов: память + JSON-файл.
// Память является первичным уровнем; файл переживает рестарты процесса.
type PoolCache struct {
	mu        sync.RWMutex
	pools     []raydium.PoolRecord
	fetchedAt time.Time

	ttl      time.Duration
	filePath string
	logger   *zap.Logger

	// Счетчики обращений (атомарные, читаются в Stats без блокировки).
	hits      uint64
	misses    uint64
	diskHits  uint64
	emergency uint64
}

// Stats — снимок счетчиков кэша.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	DiskHits      uint64 `json:"diskHits"`
	EmergencyHits uint64 `json:"emergencyHits"`
	Entries       int    `json:"entries"`
	AgeSec        int64  `json:"ageSec"`
	// Разбивка записей по источнику (имя эндпоинта или "fallback").
	Sources map[string]int `json:"sources,omitempty"`
}

// NewPoolCache создает кэш и сразу пытается поднять валидный снимок с
// диска. Ошибка загрузки не фатальна: процесс просто стартует с
// пустой памятью.
func NewPoolCache(ttl time.Duration, filePath string, logger *zap.Logger) *PoolCache {
	pc := &PoolCache{
		ttl:      ttl,
		filePath: filePath,
		logger:   logger.Named("pool-cache"),
	}
	if filePath != "" {
		if pools, fetchedAt, err := pc.loadFromDisk(); err == nil {
			pc.pools = pools
			pc.fetchedAt = fetchedAt
			pc.logger.Info("disk cache loaded",
				zap.Int("pools", len(pools)),
				zap.Duration("age", time.Since(fetchedAt)))
		} else {
			pc.logger.Debug("disk cache not loaded", zap.Error(err))
		}
	}
	return pc
}

// Get возвращает копию списка, если запись моложе ttl*multiplier.
// multiplier >= 1 приходит от circuit breaker'а в high-load режиме.
func (pc *PoolCache) Get(multiplier float64) ([]raydium.PoolRecord, bool) {
	if multiplier < 1 {
		multiplier = 1
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if len(pc.pools) == 0 {
		atomic.AddUint64(&pc.misses, 1)
		return nil, false
	}

	maxAge := time.Duration(float64(pc.ttl) * multiplier)
	if time.Since(pc.fetchedAt) >= maxAge {
		atomic.AddUint64(&pc.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&pc.hits, 1)
	return pc.copyPools(), true
}

// GetExpired возвращает содержимое памяти независимо от TTL.
// Аварийный путь: просроченные данные лучше, чем никакие.
func (pc *PoolCache) GetExpired() ([]raydium.PoolRecord, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if len(pc.pools) == 0 {
		return nil, false
	}
	atomic.AddUint64(&pc.emergency, 1)
	pc.logger.Error("serving expired cache as emergency fallback",
		zap.Int("pools", len(pc.pools)),
		zap.Duration("age", time.Since(pc.fetchedAt)))
	return pc.copyPools(), true
}

// Set перезаписывает кэш и сохраняет снимок на диск.
func (pc *PoolCache) Set(pools []raydium.PoolRecord) {
	now := time.Now()
	copied := make([]raydium.PoolRecord, len(pools))
	copy(copied, pools)

	pc.mu.Lock()
	pc.pools = copied
	pc.fetchedAt = now
	pc.mu.Unlock()

	if pc.filePath == "" {
		return
	}
	if err := pc.persist(copied, now); err != nil {
		pc.logger.Warn("failed to persist cache", zap.Error(err))
	}
}

// RefreshFromDisk перечитывает дисковый уровень и, если запись валидна
// и свежее памяти, поднимает ее. Возвращает данные при успехе.
func (pc *PoolCache) RefreshFromDisk(multiplier float64) ([]raydium.PoolRecord, bool) {
	if pc.filePath == "" {
		return nil, false
	}
	if multiplier < 1 {
		multiplier = 1
	}

	pools, fetchedAt, err := pc.loadFromDisk()
	if err != nil {
		return nil, false
	}
	maxAge := time.Duration(float64(pc.ttl) * multiplier)
	if time.Since(fetchedAt) >= maxAge {
		return nil, false
	}

	pc.mu.Lock()
	if fetchedAt.After(pc.fetchedAt) {
		pc.pools = pools
		pc.fetchedAt = fetchedAt
	}
	pc.mu.Unlock()

	atomic.AddUint64(&pc.diskHits, 1)
	pc.logger.Info("disk cache hit",
		zap.Int("pools", len(pools)),
		zap.Duration("age", time.Since(fetchedAt)))

	out := make([]raydium.PoolRecord, len(pools))
	copy(out, pools)
	return out, true
}

// Stats возвращает снимок счетчиков.
func (pc *PoolCache) Stats() Stats {
	pc.mu.RLock()
	entries := len(pc.pools)
	var age int64
	if !pc.fetchedAt.IsZero() {
		age = int64(time.Since(pc.fetchedAt).Seconds())
	}
	var sources map[string]int
	if entries > 0 {
		sources = make(map[string]int)
		for i := range pc.pools {
			sources[pc.pools[i].Source]++
		}
	}
	pc.mu.RUnlock()

	return Stats{
		Hits:          atomic.LoadUint64(&pc.hits),
		Misses:        atomic.LoadUint64(&pc.misses),
		DiskHits:      atomic.LoadUint64(&pc.diskHits),
		EmergencyHits: atomic.LoadUint64(&pc.emergency),
		Entries:       entries,
		AgeSec:        age,
		Sources:       sources,
	}
}

// copyPools вызывается под блокировкой чтения.
func (pc *PoolCache) copyPools() []raydium.PoolRecord {
	out := make([]raydium.PoolRecord, len(pc.pools))
	copy(out, pc.pools)
	return out
}
