// internal/detector/stats.go
package detector

import (
	"sync/atomic"
	"time"

	"github.com/solscout/curvewatch/internal/breaker"
	"github.com/solscout/curvewatch/internal/cache"
)

// Stats — снимок наблюдаемости для внешних дашбордов. Рендеринг не
// входит в задачи детектора.
type Stats struct {
	InstanceID    string           `json:"instanceId"`
	EstimatorMode string           `json:"estimatorMode"`
	Cache         cache.Stats      `json:"cache"`
	Breaker       breaker.Snapshot `json:"breaker"`
	Timeouts      uint64           `json:"timeouts"`
	LastFetchMs   int64            `json:"lastFetchMs"`
}

// GetStats возвращает счетчики кэша, состояние breaker'а и
// длительность последнего fetch'а.
func (d *Detector) GetStats() Stats {
	return Stats{
		InstanceID:    d.instanceID,
		EstimatorMode: d.strategy.Name(),
		Cache:         d.cache.Stats(),
		Breaker:       d.breaker.State(),
		Timeouts:      atomic.LoadUint64(&d.timeouts),
		LastFetchMs:   time.Duration(atomic.LoadInt64(&d.lastFetchNanos)).Milliseconds(),
	}
}
