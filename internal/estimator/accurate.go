// internal/estimator/accurate.go
package estimator

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/solscout/curvewatch/internal/raydium"
	solbc "github.com/solscout/curvewatch/pkg/blockchain/solana"
)

const (
	rpcCallTimeout   = 5 * time.Second
	rpcCacheTTL      = 120 * time.Second
	maxConcurrentRPC = 5
	rpcMaxTries      = 3

	confidenceVault = 0.95
	confidenceMeta  = 0.85
)

// Accurate — медленная стратегия: инспекция аккаунтов через RPC.
// Параллелизм ограничен семафором, чтобы не перегружать публичные
// RPC-провайдеры; ответы кэшируются по адресу аккаунта.
type Accurate struct {
	client *solbc.Client
	sem    *semaphore.Weighted
	cache  *rpcCache
	logger *zap.Logger
}

func NewAccurate(client *solbc.Client, logger *zap.Logger) *Accurate {
	return &Accurate{
		client: client,
		sem:    semaphore.NewWeighted(maxConcurrentRPC),
		cache:  newRPCCache(rpcCacheTTL),
		logger: logger.Named("accurate-estimator"),
	}
}

func (a *Accurate) Name() string { return "accurate" }

// Estimate пытается измерить резервы напрямую (баланс хранилища
// SOL-стороны), иначе выводит оценку из метаданных аккаунта пула.
// Сбой RPC по одному пулу не фатален: возвращается нулевая оценка с
// нулевой уверенностью, пул отсеется фильтром минимальных резервов.
func (a *Accurate) Estimate(ctx context.Context, pool raydium.PoolRecord) (Estimate, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return Estimate{}, err
	}
	defer a.sem.Release(1)

	if vault, ok := pool.SolSideVault(); ok {
		if est, ok := a.vaultBalance(ctx, vault); ok {
			return est, nil
		}
	}

	poolKey, err := solana.PublicKeyFromBase58(pool.PoolID)
	if err != nil {
		a.logger.Debug("pool id is not a valid pubkey",
			zap.String("pool_id", pool.PoolID),
			zap.Error(err))
		return Estimate{Method: MethodAccountMeta}, nil
	}

	account, err := a.accountInfo(ctx, poolKey)
	if err != nil {
		a.logger.Debug("account inspection failed",
			zap.String("pool_id", pool.PoolID),
			zap.Error(err))
		return Estimate{Method: MethodAccountMeta}, nil
	}

	dataLen := 0
	if account.Data != nil {
		dataLen = len(account.Data.GetBinary())
	}
	base := metaEstimate(dataLen, account.Lamports, account.Executable, account.Owner.String())
	enhanced := enhancedEstimate(base, pool)
	final := (base + enhanced) / 2

	return Estimate{SolReserves: final, Confidence: confidenceMeta, Method: MethodAccountMeta}, nil
}

// vaultBalance измеряет резервы напрямую: хранилище SOL-стороны — это
// обычный wrapped-SOL токен-аккаунт.
func (a *Accurate) vaultBalance(ctx context.Context, vault string) (Estimate, bool) {
	vaultKey, err := solana.PublicKeyFromBase58(vault)
	if err != nil {
		return Estimate{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()

	amount, decimals, err := a.client.GetTokenAccountBalance(callCtx, vaultKey)
	if err != nil {
		a.logger.Debug("vault balance query failed",
			zap.String("vault", vault),
			zap.Error(err))
		return Estimate{}, false
	}

	raw, err := strconv.ParseFloat(amount, 64)
	if err != nil || raw <= 0 {
		return Estimate{}, false
	}

	divisor := 1.0
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}
	return Estimate{
		SolReserves: raw / divisor,
		Confidence:  confidenceVault,
		Method:      MethodVaultBalance,
	}, true
}

// accountInfo читает метаданные аккаунта через кэш и backoff-повторы.
func (a *Accurate) accountInfo(ctx context.Context, key solana.PublicKey) (*rpc.Account, error) {
	address := key.String()
	if account, ok := a.cache.get(address); ok {
		return account, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	notify := func(err error, duration time.Duration) {
		a.logger.Debug("retrying account info",
			zap.String("address", address),
			zap.Duration("backoff", duration),
			zap.Error(err))
	}

	operation := func() (*rpc.Account, error) {
		callCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
		defer cancel()
		return a.client.GetAccountInfo(callCtx, key)
	}

	account, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(rpcMaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, err
	}

	a.cache.set(address, account)
	return account, nil
}

// metaEstimate выводит базовую оценку из generic-метаданных аккаунта.
// Без полной AMM-десериализации ни одно поле не авторитетно, поэтому
// каждое дает лишь мультипликативную поправку к базе.
func metaEstimate(dataLen int, lamports uint64, executable bool, owner string) float64 {
	est := 10.0

	switch {
	case dataLen >= 600:
		est *= 1.6
	case dataLen >= 300:
		est *= 1.3
	case dataLen > 0:
		est *= 0.9
	default:
		est *= 0.7
	}

	solBalance := float64(lamports) / 1e9
	switch {
	case solBalance > 10:
		est *= 1.5
	case solBalance > 2:
		est *= 1.3
	case solBalance > 0.5:
		est *= 1.1
	default:
		est *= 0.8
	}

	if owner == raydium.RaydiumAMMProgramID {
		est *= 1.4
	}
	if executable {
		// Исполняемые аккаунты — программы, не пулы.
		est *= 0.3
	}

	return est
}

// enhancedEstimate — вторичная оценка с бонусами за расположение SOL
// на quote-стороне и валидный mint токена.
func enhancedEstimate(base float64, pool raydium.PoolRecord) float64 {
	est := base
	if !pool.SolIsBase() {
		est *= 1.2
	}
	if _, err := solana.PublicKeyFromBase58(pool.TokenAddress); err == nil {
		est *= 1.1
	}
	return est
}
