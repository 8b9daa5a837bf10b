package processor

import (
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

func (p *Processor) removeAuthority( // PA
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
	authority ledger.Address,
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

	removed := auth.metadata.RemoveAuthority(authority)
	if err := p.writeMetadata(ictx, auth); err != nil {
		return err
	}

	if auth.metadata.Locked() {
		p.log.Warn("last authority removed, record is locked",
			"json", acc.jsonKey.String())
	}
	p.log.Info("authority removed",
		"json", acc.jsonKey.String(),
		"authority", authority.String(),
		"occurrences", removed)
	return nil
}
