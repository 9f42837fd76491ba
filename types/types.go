package types

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Wallet struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// Account is the on-chain view of a derived wallet. Err is set when the
// lookup failed after retries; Balance and Nonce are then meaningless.
type Account struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
	Err     error
}

type DerivationMetrics struct {
	ReadTime       time.Duration
	DeriveTime     time.Duration
	LookupTime     time.Duration
	LinesRead      int
	Derived        int
	Skipped        int
	LookupFailures int
	Mutex          sync.Mutex
}

func NewDerivationMetrics() *DerivationMetrics {
	return &DerivationMetrics{}
}

func (m *DerivationMetrics) AddReadTime(d time.Duration) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.ReadTime += d
}

func (m *DerivationMetrics) AddDeriveTime(d time.Duration) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.DeriveTime += d
}

func (m *DerivationMetrics) AddLookupTime(d time.Duration) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.LookupTime += d
}

func (m *DerivationMetrics) AddLinesRead(n int) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.LinesRead += n
}

func (m *DerivationMetrics) IncrementDerived() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.Derived++
}

func (m *DerivationMetrics) IncrementSkipped() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.Skipped++
}

func (m *DerivationMetrics) IncrementLookupFailures() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.LookupFailures++
}
