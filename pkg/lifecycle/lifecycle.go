// Package lifecycle creates, resizes and closes program-owned accounts on
// behalf of the JSON metadata program. Funding always follows the host's
// rent-exempt minimum for the account's size.
package lifecycle

import (
	"errors"
	"fmt"
	"math"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// ErrNotOwned is returned when the program tries to resize or close an
// account it does not own.
var ErrNotOwned = errors.New("lifecycle: account not owned by program")

// CreateFunded allocates size zeroed bytes at target, funds it from payer
// to the rent-exempt minimum and assigns it to the invoking program.
// signerSeeds are required when target is a derived address.
func CreateFunded( // A
	ictx ledger.InvokeContext,
	payer *ledger.AccountInfo,
	target *ledger.AccountInfo,
	size int,
	signerSeeds [][]byte,
) error {
	if !target.DataIsEmpty() || !target.IsOwnedBy(ledger.SystemProgramID) {
		return fmt.Errorf("%w: %s", ledger.ErrAccountAlreadyInUse, target.Key)
	}
	lamports := ictx.Rent().MinimumBalance(size)
	if err := ictx.System().CreateAccount(
		payer,
		target,
		lamports,
		uint64(size),
		ictx.ProgramID(),
		signerSeeds,
	); err != nil {
		return fmt.Errorf("create %s: %w", target.Key, err)
	}
	return nil
}

// ResizeOrReallocate resizes target to exactly newSize bytes. Growth is
// funded from payer, surplus rent after a shrink goes back to payer.
func ResizeOrReallocate( // A
	ictx ledger.InvokeContext,
	payer *ledger.AccountInfo,
	target *ledger.AccountInfo,
	newSize int,
) error {
	if !target.IsOwnedBy(ictx.ProgramID()) {
		return fmt.Errorf("%w: %s", ErrNotOwned, target.Key)
	}

	required := ictx.Rent().MinimumBalance(newSize)
	switch {
	case required > target.Lamports:
		if err := ictx.System().Transfer(
			payer, target, required-target.Lamports,
		); err != nil {
			return fmt.Errorf("fund resize of %s: %w", target.Key, err)
		}
	case required < target.Lamports:
		surplus := target.Lamports - required
		if payer.Lamports > math.MaxUint64-surplus {
			return fmt.Errorf("refund resize of %s: lamport overflow", target.Key)
		}
		target.Lamports -= surplus
		payer.Lamports += surplus
	}

	if err := target.Realloc(newSize); err != nil {
		return fmt.Errorf("resize %s: %w", target.Key, err)
	}
	return nil
}

// CloseAndReclaim empties target, moves its lamports to beneficiary and
// hands the address back to the system program.
func CloseAndReclaim( // A
	ictx ledger.InvokeContext,
	target *ledger.AccountInfo,
	beneficiary *ledger.AccountInfo,
) error {
	if !target.IsOwnedBy(ictx.ProgramID()) {
		return fmt.Errorf("%w: %s", ErrNotOwned, target.Key)
	}
	if beneficiary.Lamports > math.MaxUint64-target.Lamports {
		return fmt.Errorf("close %s: lamport overflow", target.Key)
	}

	beneficiary.Lamports += target.Lamports
	target.Lamports = 0
	if err := target.Realloc(0); err != nil {
		return fmt.Errorf("close %s: %w", target.Key, err)
	}
	target.Assign(ledger.SystemProgramID)
	return nil
}
