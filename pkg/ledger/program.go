package ledger

// Program is an on-ledger program the host dispatches instructions to.
type Program interface {
	Process(ctx InvokeContext, accounts []*AccountInfo, data []byte) error
}

// InvokeContext is what the host exposes to a running program.
type InvokeContext interface {
	// ProgramID is the address the program is running as.
	ProgramID() Address
	Rent() Rent
	System() SystemProgram
	Log(msg string, args ...any)
}

// SystemProgram is the host's built-in account allocator. Calls made
// through it are checked as system program actions, not as actions of the
// invoking program.
type SystemProgram interface {
	// CreateAccount funds to with lamports from from, allocates space bytes
	// and assigns it to owner. to must sign unless signerSeeds derive it
	// under the invoking program.
	CreateAccount(
		from, to *AccountInfo,
		lamports, space uint64,
		owner Address,
		signerSeeds [][]byte,
	) error

	// Transfer moves lamports between two accounts; from must be a
	// system-owned signer.
	Transfer(from, to *AccountInfo, lamports uint64) error
}
