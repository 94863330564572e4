// internal/jupiter/price.go

// Package jupiter узнает цену SOL/USD через quote-endpoint Jupiter:
// котировка 1 SOL -> USDC, поле outAmount в базовых единицах USDC
// (6 знаков).
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/cache"
	"github.com/solscout/curvewatch/internal/raydium"
)

const (
	defaultBaseURL = "https://quote-api.jup.ag/v6"
	quoteTimeout   = 8 * time.Second
	lamportsPerSol = 1_000_000_000
	usdcDecimals   = 1_000_000
)

// PriceClient кэширует цену SOL/USD с коротким TTL.
type PriceClient struct {
	http    *http.Client
	baseURL string
	cache   *cache.PriceCache
	logger  *zap.Logger
}

func NewPriceClient(baseURL string, ttl time.Duration, logger *zap.Logger) *PriceClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &PriceClient{
		http:    &http.Client{Timeout: quoteTimeout},
		baseURL: baseURL,
		cache:   cache.NewPriceCache(ttl),
		logger:  logger.Named("jupiter-price"),
	}
}

type quoteResponse struct {
	OutAmount string `json:"outAmount"`
}

// SolPrice возвращает цену SOL в USD. Ошибка не фатальна для
// вызывающих: USD-поля кандидатов просто останутся нулевыми.
func (c *PriceClient) SolPrice(ctx context.Context) (float64, error) {
	if price, ok := c.cache.Get(); ok {
		return price, nil
	}

	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d",
		c.baseURL, raydium.WrappedSolMint, raydium.USDCMint, lamportsPerSol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("quote request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	out, err := strconv.ParseInt(quote.OutAmount, 10, 64)
	if err != nil || out <= 0 {
		return 0, fmt.Errorf("invalid outAmount %q", quote.OutAmount)
	}

	price := float64(out) / usdcDecimals
	c.cache.Set(price)
	return price, nil
}
