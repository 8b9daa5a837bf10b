package processor

import (
	"fmt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/lifecycle"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/state"
)

func (p *Processor) initialize( // PA
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
) error {
	acc, err := parseRecordAccounts(accounts)
	if err != nil {
		return err
	}
	programID := ictx.ProgramID()

	if !isUnclaimed(acc.json) {
		return fmt.Errorf("%w: json record %s", AlreadyInitialized, acc.json.Key)
	}
	if !isUnclaimed(acc.metadata) {
		return fmt.Errorf("%w: metadata record %s", AlreadyInitialized, acc.metadata.Key)
	}
	bump, err := address.AssertDerivation(programID, acc.metadata.Key, acc.json.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", MetadataDerivedKeyInvalid, err)
	}
	if !acc.payer.IsSigner {
		return fmt.Errorf("%w: payer %s", ledger.ErrMissingRequiredSignature, acc.payer.Key)
	}
	if !acc.system.Key.Equals(ledger.SystemProgramID) {
		return fmt.Errorf("%w: %s", InvalidSystemProgram, acc.system.Key)
	}

	ictx.Log("creating json record")
	if err := lifecycle.CreateFunded(
		ictx, acc.payer, acc.json, len(state.NullJSON), nil,
	); err != nil {
		return err
	}
	copy(acc.json.Data, state.NullJSON)

	metadata := state.NewJsonMetadata(bump, acc.payer.Key)
	encoded, err := metadata.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", SerializeFailed, err)
	}

	ictx.Log("creating json metadata record")
	if err := lifecycle.CreateFunded(
		ictx,
		acc.payer,
		acc.metadata,
		len(encoded),
		address.SignerSeeds(programID, acc.json.Key, bump),
	); err != nil {
		return err
	}
	copy(acc.metadata.Data, encoded)

	p.log.Info("json record initialized",
		"json", acc.json.Key.String(),
		"metadata", acc.metadata.Key.String(),
		"payer", acc.payer.Key.String())
	return nil
}
