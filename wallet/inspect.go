package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"pvkey-address/log"
	"pvkey-address/network/connection"
	"pvkey-address/types"

	"github.com/ethereum/go-ethereum/common"
)

// InspectOptions controls the on-chain lookup of derived wallets.
type InspectOptions struct {
	Concurrency int
	CallTimeout time.Duration
	Retry       connection.RetryConfig
}

// InspectWallets fetches the balance and pending nonce of every wallet. The
// result has one account per wallet, in the same order. A lookup that still
// fails after retries sets Account.Err instead of failing the batch.
func InspectWallets(ctx context.Context, wallets []*types.Wallet, pool *connection.ClientPool, opts InspectOptions, metrics *types.DerivationMetrics) []types.Account {
	start := time.Now()
	accounts := make([]types.Account, len(wallets))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i, w := range wallets {
		wg.Add(1)
		go func(idx int, address common.Address) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				accounts[idx] = types.Account{Address: address, Err: ctx.Err()}
				metrics.IncrementLookupFailures()
				return
			}
			defer func() { <-sem }()

			accounts[idx] = inspectAccount(ctx, address, pool, opts)
			if accounts[idx].Err != nil {
				metrics.IncrementLookupFailures()
				log.RPC.Warn().
					Str("address", address.Hex()).
					Err(accounts[idx].Err).
					Msg("Account lookup failed")
			}
		}(i, w.Address)
	}

	wg.Wait()
	metrics.AddLookupTime(time.Since(start))
	return accounts
}

func inspectAccount(ctx context.Context, address common.Address, pool *connection.ClientPool, opts InspectOptions) types.Account {
	account := types.Account{Address: address}
	retry := opts.Retry
	retry.OnRetry = func(attempt int, err error) {
		log.RPC.Debug().
			Str("address", address.Hex()).
			Int("attempt", attempt).
			Err(err).
			Msg("Retrying account lookup")
	}

	var wg sync.WaitGroup
	wg.Add(2)

	var nonceErr, balanceErr error

	go func() {
		defer wg.Done()
		nonce, err := connection.WithRetry(ctx, func(ctx context.Context) (uint64, error) {
			return callWithClient(ctx, pool, opts.CallTimeout, func(ctx context.Context, c connection.ChainReader) (uint64, error) {
				return c.PendingNonceAt(ctx, address)
			})
		}, retry)
		if err != nil {
			nonceErr = fmt.Errorf("failed to get nonce for %s: %w", address.Hex(), err)
			return
		}
		account.Nonce = nonce
	}()

	go func() {
		defer wg.Done()
		balance, err := connection.WithRetry(ctx, func(ctx context.Context) (*big.Int, error) {
			return callWithClient(ctx, pool, opts.CallTimeout, func(ctx context.Context, c connection.ChainReader) (*big.Int, error) {
				return c.BalanceAt(ctx, address, nil)
			})
		}, retry)
		if err != nil {
			balanceErr = fmt.Errorf("failed to get balance for %s: %w", address.Hex(), err)
			return
		}
		account.Balance = balance
	}()

	wg.Wait()

	if nonceErr != nil {
		account.Err = nonceErr
	} else if balanceErr != nil {
		account.Err = balanceErr
	}
	return account
}

// callWithClient runs call against the next pooled client under a per-call
// timeout and reports the outcome back to the pool.
func callWithClient[T any](ctx context.Context, pool *connection.ClientPool, timeout time.Duration, call func(context.Context, connection.ChainReader) (T, error)) (T, error) {
	client, err := pool.GetClient()
	if err != nil {
		var zero T
		return zero, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := call(ctx, client)
	pool.Report(client, time.Since(start), err)
	return result, err
}
