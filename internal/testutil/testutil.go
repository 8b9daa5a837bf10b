package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"sort"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

var RunLong = flag.Bool("long", false, "run long/heavy tests")

func RequireLong(t *testing.T) {
	t.Helper()
	if !*RunLong {
		t.Skip("skipping long test (use -long to enable)")
	}
}

func IsLongEnabled() bool {
	return *RunLong
}

// Accounts returns n random addresses in ascending order, each mapped to
// a distinct program-owned account holding a small JSON document.
func Accounts(n int) ([]ledger.Address, map[ledger.Address]ledger.Account) {
	owner := solana.NewWallet().PublicKey()
	addrs := make([]ledger.Address, 0, n)
	accounts := make(map[ledger.Address]ledger.Account, n)
	for i := 0; i < n; i++ {
		addr := solana.NewWallet().PublicKey()
		addrs = append(addrs, addr)
		accounts[addr] = ledger.Account{
			Owner:    owner,
			Lamports: uint64(1_000 + i),
			Data:     []byte(fmt.Sprintf(`{"n":%d}`, i)),
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs, accounts
}
