package processor

import (
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/lifecycle"
)

func (p *Processor) close( // PA
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
) error {
	acc, err := parseRecordAccounts(accounts)
	if err != nil {
		return err
	}
	auth, err := authorize(
		ictx.ProgramID(),
		acc.json, acc.json.Key,
		acc.metadata, acc.payer, acc.system,
	)
	if err != nil {
		return err
	}

	if err := lifecycle.CloseAndReclaim(ictx, acc.json, auth.payer); err != nil {
		return err
	}
	if err := lifecycle.CloseAndReclaim(ictx, auth.metadataInfo, auth.payer); err != nil {
		return err
	}

	p.log.Info("json record closed",
		"json", acc.json.Key.String(),
		"payer", acc.payer.Key.String())
	return nil
}
