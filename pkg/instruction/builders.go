package instruction

import (
	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

func build(
	programID address.Address,
	accounts []ledger.AccountMeta,
	args Args,
) (ledger.Instruction, error) {
	data, err := Encode(args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: programID,
		Accounts:  accounts,
		Data:      data,
	}, nil
}

// recordAccounts is the account list shared by every operation:
// json record, metadata record, payer and system program.
func recordAccounts(
	programID, jsonAccount, payer address.Address,
	jsonWritable, jsonSigner bool,
) ([]ledger.AccountMeta, error) {
	metadata, _, err := address.FindMetadataAddress(programID, jsonAccount)
	if err != nil {
		return nil, err
	}
	return []ledger.AccountMeta{
		ledger.Meta(jsonAccount, jsonWritable, jsonSigner),
		ledger.Meta(metadata, true, false),
		ledger.Meta(payer, true, true),
		ledger.Meta(address.SystemProgramID, false, false),
	}, nil
}

// NewInitialize creates the JSON record at jsonAccount, which must sign,
// and its metadata record.
func NewInitialize( // A
	programID, jsonAccount, payer address.Address,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, true, true)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, Initialize{})
}

// NewClose deletes both records and refunds payer.
func NewClose( // A
	programID, jsonAccount, payer address.Address,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, true, false)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, Close{})
}

// NewSetValue merges value into the stored JSON.
func NewSetValue( // A
	programID, jsonAccount, payer address.Address,
	value string,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, true, false)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, SetValue{Value: value})
}

// NewAppendValue merges value into the stored JSON.
func NewAppendValue( // A
	programID, jsonAccount, payer address.Address,
	value string,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, true, false)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, AppendValue{Value: value})
}

// NewAddAuthority grants newAuthority write access to the record pair.
func NewAddAuthority( // A
	programID, jsonAccount, payer address.Address,
	newAuthority address.Address,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, false, false)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, AddAuthority{NewAuthority: newAuthority})
}

// NewRemoveAuthority revokes every grant of authority.
func NewRemoveAuthority( // A
	programID, jsonAccount, payer address.Address,
	authority address.Address,
) (ledger.Instruction, error) {
	accounts, err := recordAccounts(programID, jsonAccount, payer, false, false)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return build(programID, accounts, RemoveAuthority{Authority: authority})
}
