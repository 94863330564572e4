// pkg/blockchain/solana/rpc_pool.go
package solana

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// ErrNoHealthyClients возвращается, когда ни один RPC не отвечает.
var ErrNoHealthyClients = errors.New("no healthy rpc clients available")

// healthCheckInterval ограничивает частоту фоновых проверок пула.
const healthCheckInterval = time.Minute

type RPCPool struct {
	clients []*rpc.Client
	mutex   sync.Mutex
	index   int

	lastHealthCheck time.Time
	checking        bool
}

func NewRPCPool(rpcList []string) *RPCPool {
	// Создаем список RPC-клиентов из rpcList
	var clients []*rpc.Client
	for _, url := range rpcList {
		client := rpc.New(url)
		clients = append(clients, client)
	}

	return &RPCPool{
		clients: clients,
		index:   0,
	}
}

func (p *RPCPool) GetClient() *rpc.Client {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Возвращаем следующий доступный RPC-клиент (круговой цикл)
	client := p.clients[p.index]
	p.index = (p.index + 1) % len(p.clients)
	return client
}

// Size возвращает количество клиентов в пуле.
func (p *RPCPool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.clients)
}

// Do выполняет операцию, перебирая клиентов по очереди до первого успеха.
// Каждый клиент пробуется не более одного раза за вызов.
func (p *RPCPool) Do(ctx context.Context, op func(client *rpc.Client) error) error {
	n := p.Size()
	if n == 0 {
		return ErrNoHealthyClients
	}

	var lastErr error
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := p.GetClient()
		if err := op(client); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = ErrNoHealthyClients
	}
	// Все клиенты отказали — запускаем фоновую чистку пула.
	p.maybeHealthCheck()
	return lastErr
}

// maybeHealthCheck запускает PerformHealthChecks в фоне не чаще, чем
// раз в healthCheckInterval, и не допускает параллельных проверок.
func (p *RPCPool) maybeHealthCheck() {
	p.mutex.Lock()
	if p.checking || time.Since(p.lastHealthCheck) < healthCheckInterval {
		p.mutex.Unlock()
		return
	}
	p.checking = true
	p.lastHealthCheck = time.Now()
	p.mutex.Unlock()

	go func() {
		p.PerformHealthChecks()
		p.mutex.Lock()
		p.checking = false
		p.mutex.Unlock()
	}()
}

func (p *RPCPool) CheckClientHealth(client *rpc.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	return err == nil
}

// PerformHealthChecks удаляет из пула неотвечающие клиенты.
// Последний клиент не удаляется, даже если он нездоров.
func (p *RPCPool) PerformHealthChecks() {
	p.mutex.Lock()
	clients := make([]*rpc.Client, len(p.clients))
	copy(clients, p.clients)
	p.mutex.Unlock()

	var healthy []*rpc.Client
	for _, client := range clients {
		if p.CheckClientHealth(client) {
			healthy = append(healthy, client)
		}
	}

	if len(healthy) == 0 {
		return
	}

	p.mutex.Lock()
	p.clients = healthy
	if p.index >= len(p.clients) {
		p.index = 0
	}
	p.mutex.Unlock()
}
