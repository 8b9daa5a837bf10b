package processor

import (
	"errors"
	"fmt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/lifecycle"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/mergepatch"
)

// setValue serves both SetValue and AppendValue.
func (p *Processor) setValue( // PA
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
	value string,
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

	updated, err := mergepatch.Apply(acc.json.Data, []byte(value))
	if err != nil {
		if errors.Is(err, mergepatch.ErrInvalidJSON) {
			return fmt.Errorf("%w: %v", InvalidJson, err)
		}
		return fmt.Errorf("%w: %v", SerializeFailed, err)
	}

	if err := lifecycle.ResizeOrReallocate(
		ictx, auth.payer, acc.json, len(updated),
	); err != nil {
		return err
	}
	copy(acc.json.Data, updated)

	p.log.Debug("json record updated",
		"json", acc.json.Key.String(),
		"bytes", len(updated))
	return nil
}
