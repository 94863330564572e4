// internal/raydium/types.go
package raydium

import (
	"strconv"
)

// Canonical SOL addresses. Both are matched exactly and full-length by
// the SOL-pair predicate; see mints.go.
const (
	WrappedSolMint  = "So11111111111111111111111111111111111111112"
	SystemProgramID = "11111111111111111111111111111111"

	// USDCMint участвует в минимальном fallback-наборе пулов.
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	// RaydiumAMMProgramID — программа-владелец V4 AMM пулов.
	RaydiumAMMProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// RawReserves — резервы пула в сырых единицах источника.
type RawReserves struct {
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PoolRecord — одна найденная SOL-пара, приведенная к внутреннему виду.
type PoolRecord struct {
	TokenAddress string       `json:"tokenAddress"`
	PoolID       string       `json:"poolId"`
	BaseMint     string       `json:"baseMint"`
	QuoteMint    string       `json:"quoteMint"`
	LiquidityUsd float64      `json:"liquidityUsd"`
	Volume24hUsd float64      `json:"volume24hUsd"`
	RawReserves  *RawReserves `json:"rawReserves,omitempty"`
	BaseVault    string       `json:"baseVault,omitempty"`
	QuoteVault   string       `json:"quoteVault,omitempty"`
	Source       string       `json:"source"`
}

// SolIsBase сообщает, на какой стороне пула находится SOL.
func (p PoolRecord) SolIsBase() bool {
	return p.BaseMint == WrappedSolMint || p.BaseMint == SystemProgramID
}

// SolSideRawReserve возвращает сырое количество на SOL-стороне пула.
func (p PoolRecord) SolSideRawReserve() (float64, bool) {
	if p.RawReserves == nil {
		return 0, false
	}
	if p.SolIsBase() {
		if p.RawReserves.Base > 0 {
			return p.RawReserves.Base, true
		}
		return 0, false
	}
	if p.RawReserves.Quote > 0 {
		return p.RawReserves.Quote, true
	}
	return 0, false
}

// SolSideVault возвращает адрес токен-аккаунта хранилища SOL-стороны.
func (p PoolRecord) SolSideVault() (string, bool) {
	if p.SolIsBase() {
		return p.BaseVault, p.BaseVault != ""
	}
	return p.QuoteVault, p.QuoteVault != ""
}

// MinimalFallbackPools — аварийный набор: известная пара SOL/USDC.
// Используется, когда отказали все endpoint'ы и оба уровня кэша.
func MinimalFallbackPools() []PoolRecord {
	return []PoolRecord{
		{
			TokenAddress: USDCMint,
			PoolID:       "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
			BaseMint:     WrappedSolMint,
			QuoteMint:    USDCMint,
			Source:       "fallback",
		},
	}
}

// asFloat приводит значение из сырого JSON к float64.
// API Raydium отдает числа то числом, то строкой.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}
