// internal/estimator/rpccache.go
package estimator

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// rpcCache хранит ответы getAccountInfo по адресу аккаунта, чтобы не
// дергать RPC повторно для пулов на общей инфраструктуре.
type rpcCache struct {
	mu      sync.RWMutex
	entries map[string]rpcCacheEntry
	ttl     time.Duration
}

type rpcCacheEntry struct {
	account   *rpc.Account
	fetchedAt time.Time
}

func newRPCCache(ttl time.Duration) *rpcCache {
	return &rpcCache{
		entries: make(map[string]rpcCacheEntry),
		ttl:     ttl,
	}
}

func (c *rpcCache) get(address string) (*rpc.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[address]
	if !ok || time.Since(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.account, true
}

func (c *rpcCache) set(address string, account *rpc.Account) {
	c.mu.Lock()
	c.entries[address] = rpcCacheEntry{account: account, fetchedAt: time.Now()}
	c.mu.Unlock()
}
