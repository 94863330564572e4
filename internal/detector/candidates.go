// internal/detector/candidates.go
package detector

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solscout/curvewatch/internal/graduation"
	"github.com/solscout/curvewatch/internal/raydium"
)

// Candidate — пул с анализом прогресса, готовый для внешних слоев
// (алертинг, скоринг). Символ и имя токена здесь не резолвятся:
// NeedsEnrichment сигнализирует, что метаданные нужно добрать снаружи.
type Candidate struct {
	raydium.PoolRecord
	graduation.Analysis

	EstimationMethod string  `json:"estimationMethod"`
	MarketCapUsd     float64 `json:"marketCapUsd"`
	NeedsEnrichment  bool    `json:"needsEnrichment"`
}

// GetCandidates анализирует пулы конкурентно, отбрасывает неудавшиеся
// оценки без повторов и сортирует выживших по прогрессу после полного
// барьера. Порядок анализа между пулами не гарантируется.
func (d *Detector) GetCandidates(ctx context.Context, limit int) []Candidate {
	if limit <= 0 {
		limit = d.cfg.MaxPools
	}

	pools := d.GetPools(ctx, d.cfg.MaxPools)
	if len(pools) == 0 {
		return nil
	}

	solUsd, err := d.price.SolPrice(ctx)
	if err != nil {
		// Некритично: USD-поля кандидатов останутся нулевыми.
		d.logger.Debug("sol price unavailable", zap.Error(err))
		solUsd = 0
	}

	results := make([]Candidate, len(pools))
	valid := make([]bool, len(pools))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.AnalysisConcurrency)
	for i, pool := range pools {
		g.Go(func() error {
			est, err := d.strategy.Estimate(gctx, pool)
			if err != nil {
				d.logger.Debug("estimate failed, dropping pool",
					zap.String("pool_id", pool.PoolID),
					zap.Error(err))
				return nil
			}
			if est.SolReserves < d.cfg.MinReserveSol {
				return nil
			}

			candidate := Candidate{
				PoolRecord:       pool,
				Analysis:         graduation.Analyze(est.SolReserves, est.Confidence),
				EstimationMethod: est.Method,
				NeedsEnrichment:  true,
			}
			if solUsd > 0 {
				// Грубая оценка капитализации: обе стороны пула.
				candidate.MarketCapUsd = est.SolReserves * 2 * solUsd
			}

			results[i] = candidate
			valid[i] = true
			return nil
		})
	}
	// Ошибок goroutine'ы не возвращают, Wait — чистый барьер.
	_ = g.Wait()

	candidates := make([]Candidate, 0, len(pools))
	for i, ok := range valid {
		if ok {
			candidates = append(candidates, results[i])
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ProgressPct > candidates[j].ProgressPct
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	d.logger.Info("candidates built",
		zap.Int("analyzed", len(pools)),
		zap.Int("candidates", len(candidates)),
		zap.String("strategy", d.strategy.Name()))
	return candidates
}
