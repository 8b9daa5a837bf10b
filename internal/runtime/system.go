package runtime

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// systemProgram runs system actions requested by the invoking program.
// The caller's own changes are verified first, then the system action is
// applied and accepted as the new baseline.
type systemProgram struct {
	inv *invocation
}

var _ ledger.SystemProgram = (*systemProgram)(nil)

func (s *systemProgram) invoke(fn func() error) error {
	if err := s.inv.verify(); err != nil {
		return err
	}
	s.inv.rebase()
	if err := fn(); err != nil {
		return err
	}
	s.inv.rebase()
	return nil
}

func (s *systemProgram) CreateAccount(
	from, to *ledger.AccountInfo,
	lamports, space uint64,
	owner ledger.Address,
	signerSeeds [][]byte,
) error {
	if !s.inv.lookup(from) || !s.inv.lookup(to) {
		return ledger.ErrNotEnoughAccountKeys
	}
	return s.invoke(func() error {
		if err := checkFunder(from); err != nil {
			return err
		}
		if !to.IsWritable {
			return fmt.Errorf("%w: %s", ledger.ErrReadonlyDataModified, to.Key)
		}
		if len(signerSeeds) > 0 {
			derived, err := solana.CreateProgramAddress(signerSeeds, s.inv.programID)
			if err != nil || !derived.Equals(to.Key) {
				return fmt.Errorf("%w: %s", ledger.ErrInvalidSeeds, to.Key)
			}
		} else if !to.IsSigner {
			return fmt.Errorf("%w: %s", ledger.ErrMissingRequiredSignature, to.Key)
		}
		if !to.DataIsEmpty() || !to.IsOwnedBy(ledger.SystemProgramID) {
			return fmt.Errorf("%w: %s", ledger.ErrAccountAlreadyInUse, to.Key)
		}
		if space > ledger.MaxAccountDataLen {
			return fmt.Errorf("%w: %d bytes", ledger.ErrInvalidRealloc, space)
		}

		// A prefunded target only needs the difference.
		var topUp uint64
		if lamports > to.Lamports {
			topUp = lamports - to.Lamports
		}
		if from.Lamports < topUp {
			return fmt.Errorf(
				"%w: %s has %d, needs %d",
				ledger.ErrInsufficientFunds, from.Key, from.Lamports, topUp,
			)
		}
		from.Lamports -= topUp
		to.Lamports += topUp
		to.Data = make([]byte, space)
		to.Owner = owner
		return nil
	})
}

func (s *systemProgram) Transfer(from, to *ledger.AccountInfo, lamports uint64) error {
	if !s.inv.lookup(from) || !s.inv.lookup(to) {
		return ledger.ErrNotEnoughAccountKeys
	}
	return s.invoke(func() error {
		if err := checkFunder(from); err != nil {
			return err
		}
		if !to.IsWritable {
			return fmt.Errorf("%w: %s", ledger.ErrReadonlyLamportChange, to.Key)
		}
		if from.Lamports < lamports {
			return fmt.Errorf(
				"%w: %s has %d, needs %d",
				ledger.ErrInsufficientFunds, from.Key, from.Lamports, lamports,
			)
		}
		from.Lamports -= lamports
		to.Lamports += lamports
		return nil
	})
}

// checkFunder validates an account the system program debits.
func checkFunder(from *ledger.AccountInfo) error {
	if !from.IsSigner {
		return fmt.Errorf("%w: %s", ledger.ErrMissingRequiredSignature, from.Key)
	}
	if !from.IsWritable {
		return fmt.Errorf("%w: %s", ledger.ErrReadonlyLamportChange, from.Key)
	}
	if !from.IsOwnedBy(ledger.SystemProgramID) || !from.DataIsEmpty() {
		return fmt.Errorf("%w: %s", ledger.ErrExternalLamportSpend, from.Key)
	}
	return nil
}
