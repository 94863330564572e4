// internal/raydium/fetcher.go
package raydium

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrAllEndpointsFailed — ни один endpoint не вернул пригодных данных.
// Ошибка retryable: верхний слой (кэш + circuit breaker) решает, что
// делать дальше.
var ErrAllEndpointsFailed = errors.New("all pool endpoints failed")

// Endpoint — один источник списка пулов.
type Endpoint struct {
	Name    string
	URL     string
	Timeout time.Duration
	Slow    bool // пропускается в режиме высокой нагрузки
}

// DefaultEndpoints — приоритетный список endpoint'ов Raydium.
// Порядок важен: первым идет самый быстрый известный источник.
func DefaultEndpoints(fastTimeout, fallbackTimeout time.Duration) []Endpoint {
	return []Endpoint{
		{Name: "pairs", URL: "https://api.raydium.io/v2/main/pairs", Timeout: fastTimeout},
		{Name: "amm-pools", URL: "https://api.raydium.io/v2/ammV3/ammPools", Timeout: fastTimeout, Slow: true},
		{Name: "farm-pools", URL: "https://api.raydium.io/v2/main/farm/info", Timeout: fastTimeout, Slow: true},
		{Name: "pools", URL: "https://api.raydium.io/v2/main/pools", Timeout: fastTimeout, Slow: true},
		{Name: "pairs-alt", URL: "https://api-v3.raydium.io/pools/info/list", Timeout: fallbackTimeout, Slow: true},
		{Name: "liquidity", URL: "https://api.raydium.io/v2/sdk/liquidity/mainnet.json", Timeout: fallbackTimeout, Slow: true},
	}
}

// Fetcher получает список SOL-пар с каскада endpoint'ов.
type Fetcher struct {
	client    *Client
	endpoints []Endpoint
	logger    *zap.Logger
}

func NewFetcher(client *Client, endpoints []Endpoint, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		endpoints: endpoints,
		logger:    logger.Named("pool-fetcher"),
	}
}

// FetchSolPools перебирает endpoint'ы по приоритету и возвращает до
// maxPools SOL-пар с первого, давшего непустой разбираемый ответ.
// В degraded-режиме медленные endpoint'ы пропускаются целиком.
func (f *Fetcher) FetchSolPools(ctx context.Context, maxPools int, degraded bool) ([]PoolRecord, error) {
	if maxPools <= 0 {
		maxPools = 1
	}

	var lastErr error
	for _, ep := range f.endpoints {
		if degraded && ep.Slow {
			f.logger.Debug("skipping slow endpoint in degraded mode",
				zap.String("endpoint", ep.Name))
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pools, err := f.fetchFromEndpoint(ctx, ep, maxPools)
		if err != nil {
			f.logger.Warn("endpoint failed, trying next",
				zap.String("endpoint", ep.Name),
				zap.Error(err))
			lastErr = err
			continue
		}
		if len(pools) == 0 {
			f.logger.Warn("endpoint returned no sol pairs, trying next",
				zap.String("endpoint", ep.Name))
			lastErr = fmt.Errorf("endpoint %s: no sol pairs", ep.Name)
			continue
		}

		f.logger.Info("sol pools fetched",
			zap.String("endpoint", ep.Name),
			zap.Int("count", len(pools)))
		return pools, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no endpoints configured")
	}
	// Оборачиваются обе ошибки: вызывающий различает таймауты через
	// errors.Is по цепочке lastErr.
	return nil, fmt.Errorf("%w: %w", ErrAllEndpointsFailed, lastErr)
}

// fetchFromEndpoint читает ответ потоково: сканирование прекращается,
// как только набрано maxPools пар, даже если в теле остались данные.
// Это ограничивает время обработки многомегабайтных дампов.
func (f *Fetcher) fetchFromEndpoint(ctx context.Context, ep Endpoint, maxPools int) ([]PoolRecord, error) {
	resp, cancel, err := f.client.Get(ctx, ep.URL, ep.Timeout)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("endpoint %s: body is not a json container", ep.Name)
	}

	switch delim {
	case '[':
		return f.scanArray(dec, ep.Name, maxPools)
	case '{':
		// Дамп ликвидности отдает {official: [...], unOfficial: [...]}.
		return f.scanKeyedLists(dec, ep.Name, maxPools)
	default:
		return nil, fmt.Errorf("endpoint %s: unexpected token %v", ep.Name, delim)
	}
}

func (f *Fetcher) scanArray(dec *json.Decoder, source string, maxPools int) ([]PoolRecord, error) {
	pools := make([]PoolRecord, 0, maxPools)
	scanned := 0

	for dec.More() {
		if len(pools) >= maxPools {
			break
		}

		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		scanned++

		if !IsSolPair(raw) {
			continue
		}
		record, ok := convert(raw, source)
		if !ok {
			// Конверсия не прошла — запись молча отбрасывается.
			continue
		}
		pools = append(pools, record)
	}

	f.logger.Debug("stream scan finished",
		zap.String("endpoint", source),
		zap.Int("scanned", scanned),
		zap.Int("collected", len(pools)))
	return pools, nil
}

func (f *Fetcher) scanKeyedLists(dec *json.Decoder, source string, maxPools int) ([]PoolRecord, error) {
	var pools []PoolRecord

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "official", "unOfficial", "unofficial", "data", "pools":
			open, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read list open: %w", err)
			}
			if d, ok := open.(json.Delim); !ok || d != '[' {
				// Не список — дочитываем значение ключа и идем дальше.
				if d, ok := open.(json.Delim); ok {
					if err := skipContainer(dec, d); err != nil {
						return nil, err
					}
				}
				continue
			}
			part, err := f.scanArray(dec, source, maxPools-len(pools))
			if err != nil {
				return nil, err
			}
			pools = append(pools, part...)
			if len(pools) >= maxPools {
				// Ранний выход: остаток тела не разбирается.
				return pools, nil
			}
			// Дочитываем закрывающую скобку списка.
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("read list close: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("skip value: %w", err)
			}
		}
	}

	return pools, nil
}

// skipContainer дочитывает уже открытый разделителем контейнер до парной
// закрывающей скобки.
func skipContainer(dec *json.Decoder, open json.Delim) error {
	if open != '[' && open != '{' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("skip container: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

// convert приводит сырой объект к PoolRecord. Обязательны идентификатор
// пула и ровно один канонический SOL-адрес среди сторон.
func convert(raw map[string]interface{}, source string) (PoolRecord, bool) {
	base, quote, ok := ExtractMints(raw)
	if !ok {
		return PoolRecord{}, false
	}

	baseIsSol := isCanonicalSol(base)
	quoteIsSol := isCanonicalSol(quote)
	if baseIsSol == quoteIsSol {
		// Ни одной или обе стороны SOL — запись не входит в кэш.
		return PoolRecord{}, false
	}

	poolID := firstString(raw, "ammId", "id", "poolId", "pairAddress", "market", "amm_id")
	if poolID == "" {
		return PoolRecord{}, false
	}

	record := PoolRecord{
		PoolID:    poolID,
		BaseMint:  base,
		QuoteMint: quote,
		Source:    source,
	}
	if baseIsSol {
		record.TokenAddress = quote
	} else {
		record.TokenAddress = base
	}

	record.LiquidityUsd = firstFloat(raw, "liquidity", "liquidityUsd", "liquidity_usd")
	record.Volume24hUsd = firstFloat(raw, "volume24h", "volume24hUsd", "volume", "volume_24h")

	if reserves, ok := extractReserves(raw); ok {
		record.RawReserves = reserves
	}
	record.BaseVault = firstString(raw, "baseVault", "base_vault")
	record.QuoteVault = firstString(raw, "quoteVault", "quote_vault")

	return record, true
}

// extractReserves пробует известные схемы именования резервов.
func extractReserves(raw map[string]interface{}) (*RawReserves, bool) {
	pairs := [][2]string{
		{"baseReserve", "quoteReserve"},
		{"base_reserve", "quote_reserve"},
		{"tokenAmountCoin", "tokenAmountPc"},
	}
	for _, keys := range pairs {
		b, okB := asFloat(raw[keys[0]])
		q, okQ := asFloat(raw[keys[1]])
		if okB || okQ {
			return &RawReserves{Base: b, Quote: q}, true
		}
	}
	return nil, false
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(raw[k]); ok {
			return s
		}
	}
	return ""
}

func firstFloat(raw map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := asFloat(raw[k]); ok {
			return f
		}
	}
	return 0
}
