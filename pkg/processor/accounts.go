package processor

import (
	"fmt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// recordAccounts is the account list of Initialize, Close, SetValue and
// AppendValue.
type recordAccounts struct {
	json     *ledger.AccountInfo
	metadata *ledger.AccountInfo
	payer    *ledger.AccountInfo
	system   *ledger.AccountInfo
}

// authorityAccounts is the account list of AddAuthority and
// RemoveAuthority. The json record only seeds the derivation check.
type authorityAccounts struct {
	jsonKey  ledger.Address
	metadata *ledger.AccountInfo
	payer    *ledger.AccountInfo
	system   *ledger.AccountInfo
}

func parseRecordAccounts(accounts []*ledger.AccountInfo) (recordAccounts, error) {
	if len(accounts) < 4 {
		return recordAccounts{}, fmt.Errorf(
			"%w: need 4, got %d", ledger.ErrNotEnoughAccountKeys, len(accounts),
		)
	}
	return recordAccounts{
		json:     accounts[0],
		metadata: accounts[1],
		payer:    accounts[2],
		system:   accounts[3],
	}, nil
}

func parseAuthorityAccounts(accounts []*ledger.AccountInfo) (authorityAccounts, error) {
	if len(accounts) < 4 {
		return authorityAccounts{}, fmt.Errorf(
			"%w: need 4, got %d", ledger.ErrNotEnoughAccountKeys, len(accounts),
		)
	}
	return authorityAccounts{
		jsonKey:  accounts[0].Key,
		metadata: accounts[1],
		payer:    accounts[2],
		system:   accounts[3],
	}, nil
}
