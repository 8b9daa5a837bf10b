package ledger

import "errors"

// Host errors. They abort the whole transaction.
var (
	ErrMissingRequiredSignature    = errors.New("missing required signature for instruction")
	ErrInvalidAccountData          = errors.New("invalid account data for instruction")
	ErrInvalidInstructionData      = errors.New("invalid instruction data")
	ErrNotEnoughAccountKeys        = errors.New("insufficient account keys for instruction")
	ErrInsufficientFunds           = errors.New("insufficient funds for instruction")
	ErrAccountAlreadyInUse         = errors.New("account already in use")
	ErrInvalidSeeds                = errors.New("provided seeds do not result in a valid address")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrExternalLamportSpend        = errors.New("instruction spent from the balance of an account it does not own")
	ErrReadonlyDataModified        = errors.New("instruction modified data of a read-only account")
	ErrReadonlyLamportChange       = errors.New("instruction changed the balance of a read-only account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrInvalidRealloc              = errors.New("failed to reallocate account data")
	ErrSignatureFailure            = errors.New("transaction signature verification failure")
	ErrUnknownProgram              = errors.New("attempt to load a program that does not exist")
	ErrEmptyTransaction            = errors.New("transaction has no instructions")
)
