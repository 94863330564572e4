// internal/raydium/client.go
package raydium

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client выполняет таймированные GET-запросы к HTTP API.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient создает HTTP-клиент с настроенным транспортом.
// Таймаут задается per-request через контекст, а не на клиенте:
// у разных endpoint'ов разные бюджеты времени.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxConnsPerHost:     100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("http-client"),
	}
}

// Get выполняет GET с таймаутом и возвращает открытый ответ.
// Закрыть тело и вызвать cancel обязан вызывающий.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "curvewatch/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		cancel()
		c.logger.Debug("request failed",
			zap.String("url", url),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}

	c.logger.Debug("request completed",
		zap.String("url", url),
		zap.Duration("duration", duration),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp, cancel, nil
}
