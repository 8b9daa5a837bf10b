// Package processor implements the JSON metadata program: it decodes an
// instruction, checks the accounts it was given and applies the operation
// to the JSON record and its metadata record.
package processor

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/instruction"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// Processor is the JSON metadata program. It holds no state between
// instructions.
type Processor struct {
	log *slog.Logger
}

// New returns a Processor. A nil logger discards output.
func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Processor{log: logger}
}

var _ ledger.Program = (*Processor)(nil)

// Process implements ledger.Program.
func (p *Processor) Process( // A
	ictx ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
	data []byte,
) error {
	args, err := instruction.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
	}
	ictx.Log("instruction", "name", args.Kind().String())
	p.log.Debug("processing instruction",
		"program", ictx.ProgramID().String(),
		"instruction", args.Kind().String(),
		"accounts", len(accounts))

	switch a := args.(type) {
	case instruction.Initialize:
		return p.initialize(ictx, accounts)
	case instruction.Close:
		return p.close(ictx, accounts)
	case instruction.SetValue:
		return p.setValue(ictx, accounts, a.Value)
	case instruction.AppendValue:
		return p.setValue(ictx, accounts, a.Value)
	case instruction.AddAuthority:
		return p.addAuthority(ictx, accounts, a.NewAuthority)
	case instruction.RemoveAuthority:
		return p.removeAuthority(ictx, accounts, a.Authority)
	default:
		return fmt.Errorf("%w: %s", ledger.ErrInvalidInstructionData, args.Kind())
	}
}
