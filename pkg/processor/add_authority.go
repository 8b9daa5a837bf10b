package processor

import (
	"fmt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/lifecycle"
)

func (p *Processor) addAuthority( // PA
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
	newAuthority ledger.Address,
) error {
	acc, err := parseAuthorityAccounts(accounts)
	if err != nil {
		return err
	}
	auth, err := authorize(
		ictx.ProgramID(),
		nil, acc.jsonKey,
		acc.metadata, acc.payer, acc.system,
	)
	if err != nil {
		return err
	}

	auth.metadata.AddAuthority(newAuthority)
	if err := p.writeMetadata(ictx, auth); err != nil {
		return err
	}

	p.log.Info("authority added",
		"json", acc.jsonKey.String(),
		"authority", newAuthority.String())
	return nil
}

// writeMetadata resizes the metadata record to the new encoding and
// stores it.
func (p *Processor) writeMetadata( // PA
	ictx ledger.InvokeContext,
	auth *authorized,
) error {
	encoded, err := auth.metadata.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", SerializeFailed, err)
	}
	if err := lifecycle.ResizeOrReallocate(
		ictx, auth.payer, auth.metadataInfo, len(encoded),
	); err != nil {
		return err
	}
	copy(auth.metadataInfo.Data, encoded)
	return nil
}
