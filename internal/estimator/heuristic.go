// internal/estimator/heuristic.go
package estimator

import (
	"context"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/raydium"
)

// Гипотезы единиц сырых резервов, в порядке проверки: lamports,
// micro-units, уже SOL. Берется первая, дающая значение в разумном
// диапазоне.
var unitDivisors = []float64{1e9, 1e6, 1}

const (
	saneReserveMin = 0.1
	saneReserveMax = 100.0

	confidenceRaw      = 0.8
	confidenceFallback = 0.25
)

// Heuristic — быстрая стратегия: никаких внешних вызовов на пул.
type Heuristic struct {
	logger *zap.Logger
}

func NewHeuristic(logger *zap.Logger) *Heuristic {
	return &Heuristic{logger: logger.Named("heuristic-estimator")}
}

func (h *Heuristic) Name() string { return "heuristic" }

// Estimate сначала пробует сырые резервы из сводного JSON, затем
// детерминированный hash-fallback. Ошибок не возвращает: fallback
// определен для любого пула.
func (h *Heuristic) Estimate(_ context.Context, pool raydium.PoolRecord) (Estimate, error) {
	if sol, ok := reservesFromRaw(pool); ok {
		return Estimate{SolReserves: sol, Confidence: confidenceRaw, Method: MethodRawReserves}, nil
	}

	sol := hashFallback(pool)
	h.logger.Debug("raw reserves unusable, using hash fallback",
		zap.String("pool_id", pool.PoolID),
		zap.Float64("estimate", sol))
	return Estimate{SolReserves: sol, Confidence: confidenceFallback, Method: MethodHashFallback}, nil
}

// reservesFromRaw конвертирует сырое значение SOL-стороны, проверяя
// гипотезы единиц по очереди. Если ни одна не попала в разумный
// диапазон, поле считается отсутствующим.
func reservesFromRaw(pool raydium.PoolRecord) (float64, bool) {
	raw, ok := pool.SolSideRawReserve()
	if !ok {
		return 0, false
	}
	for _, div := range unitDivisors {
		sol := raw / div
		if sol >= saneReserveMin && sol <= saneReserveMax {
			return sol, true
		}
	}
	return 0, false
}

// hashFallback — детерминированная псевдослучайная оценка из хэша
// идентифицирующих полей пула. Кусочное распределение намеренно
// повторяет реальный перекос в сторону ранних пулов:
// 60% массы в [1, 25), 30% в [25, 60), 10% в [60, 85).
func hashFallback(pool raydium.PoolRecord) float64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(pool.PoolID))
	hasher.Write([]byte(pool.BaseMint))
	hasher.Write([]byte(pool.QuoteMint))
	u := float64(hasher.Sum64()%10000) / 10000.0

	switch {
	case u < 0.6:
		return 1 + (u/0.6)*24
	case u < 0.9:
		return 25 + ((u-0.6)/0.3)*35
	default:
		return 60 + ((u-0.9)/0.1)*25
	}
}
