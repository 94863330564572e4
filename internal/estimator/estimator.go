// internal/estimator/estimator.go

// Package estimator оценивает SOL-резервы пула. Две взаимозаменяемые
// стратегии за одним интерфейсом: быстрая эвристика без внешних
// вызовов и точная RPC-инспекция аккаунтов. Выбор делается при
// конструировании по конфигурационному enum, без проверки типов в
// рантайме.
package estimator

import (
	"context"

	"github.com/solscout/curvewatch/internal/raydium"
)

// Method идентифицирует способ получения оценки.
const (
	MethodRawReserves  = "raw-reserves"
	MethodHashFallback = "hash-fallback"
	MethodVaultBalance = "vault-balance"
	MethodAccountMeta  = "account-meta"
)

// Estimate — оценка резервов с численной уверенностью. Вызывающие
// обязаны дисконтировать низкую уверенность: hash-fallback — это
// моделирование ожидаемого распределения, а не измерение.
type Estimate struct {
	SolReserves float64
	Confidence  float64
	Method      string
}

// Strategy — общий контракт стратегий оценки.
type Strategy interface {
	Name() string
	Estimate(ctx context.Context, pool raydium.PoolRecord) (Estimate, error)
}
