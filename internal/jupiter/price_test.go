// internal/jupiter/price_test.go
package jupiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solscout/curvewatch/internal/raydium"
)

func TestSolPriceFromQuote(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		assert.Equal(t, raydium.WrappedSolMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, raydium.USDCMint, r.URL.Query().Get("outputMint"))
		assert.Equal(t, "1000000000", r.URL.Query().Get("amount"))
		w.Write([]byte(`{"outAmount":"150250000"}`))
	}))
	defer server.Close()

	client := NewPriceClient(server.URL, time.Minute, zap.NewNop())

	price, err := client.SolPrice(context.Background())
	require.NoError(t, err)
	// outAmount в базовых единицах USDC (6 знаков).
	assert.InDelta(t, 150.25, price, 0.0001)

	// Повторный вызов в пределах TTL обслуживается из кэша.
	price, err = client.SolPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 150.25, price, 0.0001)
	assert.Equal(t, int64(1), atomic.LoadInt64(&requests))
}

func TestSolPriceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "non-200", body: "", code: http.StatusBadGateway},
		{name: "malformed json", body: "{", code: http.StatusOK},
		{name: "non-numeric outAmount", body: `{"outAmount":"abc"}`, code: http.StatusOK},
		{name: "zero outAmount", body: `{"outAmount":"0"}`, code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewPriceClient(server.URL, time.Minute, zap.NewNop())
			_, err := client.SolPrice(context.Background())
			assert.Error(t, err)
		})
	}
}
