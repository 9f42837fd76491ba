package main

import (
	"bufio"
	"fmt"
	"io"

	"pvkey-address/pkg"
	"pvkey-address/types"
)

func writeAddresses(w io.Writer, wallets []*types.Wallet) error {
	out := bufio.NewWriter(w)
	for _, wl := range wallets {
		if _, err := fmt.Fprintln(out, wl.Address.Hex()); err != nil {
			return fmt.Errorf("failed to write address: %w", err)
		}
	}
	return out.Flush()
}

// writeAccounts prints address, balance in ether and pending nonce separated
// by tabs. Failed lookups print "-" in both value columns.
func writeAccounts(w io.Writer, accounts []types.Account) error {
	out := bufio.NewWriter(w)
	for _, a := range accounts {
		var err error
		if a.Err != nil {
			_, err = fmt.Fprintf(out, "%s\t-\t-\n", a.Address.Hex())
		} else {
			_, err = fmt.Fprintf(out, "%s\t%s\t%d\n", a.Address.Hex(), pkg.WeiToEther(a.Balance), a.Nonce)
		}
		if err != nil {
			return fmt.Errorf("failed to write account: %w", err)
		}
	}
	return out.Flush()
}
