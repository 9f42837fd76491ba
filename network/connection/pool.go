package connection

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// maxConsecutiveErrors is how many failures in a row take a client out of
// rotation.
const maxConsecutiveErrors = 3

var ErrNoClients = errors.New("no clients available")

// ChainReader is the subset of the node API needed to inspect an account.
// *ethclient.Client satisfies it.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	Close()
}

type DialFunc func(ctx context.Context, endpoint string) (ChainReader, error)

// DialEthClient connects to an RPC endpoint with go-ethereum's client.
func DialEthClient(ctx context.Context, endpoint string) (ChainReader, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type PoolConfig struct {
	Endpoints []string
	// Dial defaults to DialEthClient.
	Dial DialFunc
}

type ClientPool struct {
	clients []*managedClient
	next    int
	mu      sync.Mutex
}

type managedClient struct {
	client            ChainReader
	endpoint          string
	healthy           bool
	lastError         error
	latency           time.Duration // moving average
	errorCount        int64
	requestCount      int64
	consecutiveErrors int
}

// ClientStats is a snapshot of one pooled client.
type ClientStats struct {
	Endpoint     string
	Healthy      bool
	Latency      time.Duration
	ErrorCount   int64
	RequestCount int64
	LastError    error
}

func NewClientPool(ctx context.Context, config PoolConfig) (*ClientPool, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided")
	}
	dial := config.Dial
	if dial == nil {
		dial = DialEthClient
	}

	pool := &ClientPool{
		clients: make([]*managedClient, 0, len(config.Endpoints)),
	}

	for _, endpoint := range config.Endpoints {
		client, err := dial(ctx, endpoint)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to endpoint %s: %w", endpoint, err)
		}
		pool.clients = append(pool.clients, &managedClient{
			client:   client,
			endpoint: endpoint,
			healthy:  true,
		})
	}

	return pool, nil
}

// GetClient returns the next healthy client in round-robin order. When every
// client is unhealthy they are all put back into rotation.
func (p *ClientPool) GetClient() (ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.clients) == 0 {
		return nil, ErrNoClients
	}

	for attempt := 0; attempt < 2; attempt++ {
		for i := 0; i < len(p.clients); i++ {
			mc := p.clients[p.next]
			p.next = (p.next + 1) % len(p.clients)
			if mc.healthy {
				return mc.client, nil
			}
		}

		for _, mc := range p.clients {
			mc.healthy = true
			mc.consecutiveErrors = 0
		}
	}

	return nil, ErrNoClients
}

// Report records the outcome of one call made with client.
func (p *ClientPool) Report(client ChainReader, latency time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mc := p.find(client)
	if mc == nil {
		return
	}

	mc.requestCount++
	if err != nil {
		mc.errorCount++
		mc.consecutiveErrors++
		mc.lastError = err
		if mc.consecutiveErrors >= maxConsecutiveErrors {
			mc.healthy = false
		}
		return
	}

	mc.consecutiveErrors = 0
	mc.healthy = true
	mc.lastError = nil
	if mc.latency == 0 {
		mc.latency = latency
	} else {
		mc.latency = (mc.latency*4 + latency) / 5
	}
}

func (p *ClientPool) find(client ChainReader) *managedClient {
	for _, mc := range p.clients {
		if mc.client == client {
			return mc
		}
	}
	return nil
}

func (p *ClientPool) Stats() []ClientStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]ClientStats, 0, len(p.clients))
	for _, mc := range p.clients {
		stats = append(stats, ClientStats{
			Endpoint:     mc.endpoint,
			Healthy:      mc.healthy,
			Latency:      mc.latency,
			ErrorCount:   mc.errorCount,
			RequestCount: mc.requestCount,
			LastError:    mc.lastError,
		})
	}
	return stats
}

func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close shuts down the client pool and closes all connections
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, mc := range p.clients {
		mc.client.Close()
	}
	p.clients = nil
	p.next = 0
}
