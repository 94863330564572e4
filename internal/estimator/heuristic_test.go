// internal/estimator/heuristic_test.go
package estimator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/raydium"
)

func solPool(poolID string, reserves *raydium.RawReserves) raydium.PoolRecord {
	return raydium.PoolRecord{
		PoolID:       poolID,
		BaseMint:     raydium.WrappedSolMint,
		QuoteMint:    raydium.USDCMint,
		TokenAddress: raydium.USDCMint,
		RawReserves:  reserves,
	}
}

func TestHeuristicUnitHypotheses(t *testing.T) {
	tests := []struct {
		name    string
		raw     float64
		wantSol float64
	}{
		// 50 SOL в lamports: первая гипотеза (1e9) попадает в диапазон.
		{name: "lamports", raw: 50_000_000_000, wantSol: 50},
		// 12.5 SOL в micro-units: lamports дает 0.0000125 — мимо,
		// вторая гипотеза (1e6) попадает.
		{name: "micro units", raw: 12_500_000, wantSol: 12.5},
		// Уже SOL: обе делящие гипотезы дают слишком мало.
		{name: "already sol", raw: 42, wantSol: 42},
	}

	h := NewHeuristic(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := h.Estimate(context.Background(), solPool("p", &raydium.RawReserves{Base: tt.raw}))
			require.NoError(t, err)
			assert.InDelta(t, tt.wantSol, est.SolReserves, 0.0001)
			assert.Equal(t, MethodRawReserves, est.Method)
			assert.InDelta(t, 0.8, est.Confidence, 0.001)
		})
	}
}

func TestHeuristicQuoteSideReserve(t *testing.T) {
	pool := raydium.PoolRecord{
		PoolID:       "q",
		BaseMint:     raydium.USDCMint,
		QuoteMint:    raydium.WrappedSolMint,
		TokenAddress: raydium.USDCMint,
		RawReserves:  &raydium.RawReserves{Base: 999, Quote: 7_000_000_000},
	}

	h := NewHeuristic(zap.NewNop())
	est, err := h.Estimate(context.Background(), pool)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, est.SolReserves, 0.0001)
}

func TestHeuristicOutOfRangeFallsBack(t *testing.T) {
	h := NewHeuristic(zap.NewNop())

	// Ни одна гипотеза не дает значение в [0.1, 100]: поле считается
	// отсутствующим, работает hash-fallback.
	est, err := h.Estimate(context.Background(), solPool("huge", &raydium.RawReserves{Base: 500_000_000_000_000}))
	require.NoError(t, err)
	assert.Equal(t, MethodHashFallback, est.Method)
	assert.InDelta(t, 0.25, est.Confidence, 0.001)
}

func TestHashFallbackDeterministic(t *testing.T) {
	h := NewHeuristic(zap.NewNop())
	pool := solPool("deterministic-pool", nil)

	first, err := h.Estimate(context.Background(), pool)
	require.NoError(t, err)
	second, err := h.Estimate(context.Background(), pool)
	require.NoError(t, err)

	assert.Equal(t, first.SolReserves, second.SolReserves)
	assert.Equal(t, MethodHashFallback, first.Method)
}

func TestHashFallbackRange(t *testing.T) {
	h := NewHeuristic(zap.NewNop())
	for i := 0; i < 200; i++ {
		pool := solPool(fmt.Sprintf("pool-%d", i), nil)
		est, err := h.Estimate(context.Background(), pool)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, est.SolReserves, 1.0)
		assert.Less(t, est.SolReserves, 85.0)
	}
}

func TestMetaEstimateAdjustments(t *testing.T) {
	base := metaEstimate(0, 0, false, "unknown")

	// Большой аккаунт с заметным балансом у AMM-программы оценивается
	// выше пустого.
	rich := metaEstimate(752, 15_000_000_000, false, raydium.RaydiumAMMProgramID)
	assert.Greater(t, rich, base)

	// Исполняемый аккаунт — программа, не пул.
	executable := metaEstimate(752, 15_000_000_000, true, raydium.RaydiumAMMProgramID)
	assert.Less(t, executable, rich)
}

func TestEnhancedEstimateBonuses(t *testing.T) {
	quoteSide := raydium.PoolRecord{
		BaseMint:     raydium.USDCMint,
		QuoteMint:    raydium.WrappedSolMint,
		TokenAddress: raydium.USDCMint,
	}
	baseSide := raydium.PoolRecord{
		BaseMint:     raydium.WrappedSolMint,
		QuoteMint:    raydium.USDCMint,
		TokenAddress: raydium.USDCMint,
	}

	assert.Greater(t, enhancedEstimate(10, quoteSide), enhancedEstimate(10, baseSide))

	invalidMint := raydium.PoolRecord{
		BaseMint:     raydium.WrappedSolMint,
		QuoteMint:    "not-a-mint",
		TokenAddress: "not-a-mint",
	}
	assert.Greater(t, enhancedEstimate(10, baseSide), enhancedEstimate(10, invalidMint))
}
