package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"pvkey-address/log"
	"pvkey-address/types"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey wraps every reason a line could not be turned into a wallet.
var ErrInvalidKey = errors.New("invalid private key")

// NewWallet derives a wallet from a hex private key with an optional 0x
// prefix.
func NewWallet(privateKeyHex string) (*types.Wallet, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: error casting public key to ECDSA", ErrInvalidKey)
	}

	return &types.Wallet{
		PrivateKey: privateKey,
		Address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// DeriveWallets derives a wallet for every key that parses, in input order.
// Keys that do not parse are dropped whatever the reason.
func DeriveWallets(keys []string, metrics *types.DerivationMetrics) []*types.Wallet {
	start := time.Now()
	wallets := make([]*types.Wallet, 0, len(keys))

	for i, key := range keys {
		w, err := NewWallet(key)
		if err != nil {
			metrics.IncrementSkipped()
			log.Wallet.Debug().Int("key_index", i).Err(err).Msg("Skipping key")
			continue
		}
		metrics.IncrementDerived()
		wallets = append(wallets, w)
	}

	metrics.AddDeriveTime(time.Since(start))
	return wallets
}
