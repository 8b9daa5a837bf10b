package runtime

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// invocation is the state of one instruction while its program runs.
type invocation struct {
	programID ledger.Address
	rent      ledger.Rent
	// infos holds one handle per distinct account, in first-seen order.
	infos []*ledger.AccountInfo
	// pre is the state every handle is checked against when the program
	// returns or calls into the system program.
	pre  map[ledger.Address]ledger.Account
	logs *[]string
}

var _ ledger.InvokeContext = (*invocation)(nil)

func (inv *invocation) ProgramID() ledger.Address { return inv.programID }

func (inv *invocation) Rent() ledger.Rent { return inv.rent }

func (inv *invocation) System() ledger.SystemProgram { return &systemProgram{inv: inv} }

func (inv *invocation) Log(msg string, args ...any) {
	var b bytes.Buffer
	b.WriteString("Program log: ")
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	*inv.logs = append(*inv.logs, b.String())
}

func (inv *invocation) lookup(info *ledger.AccountInfo) bool {
	for _, known := range inv.infos {
		if known == info {
			return true
		}
	}
	return false
}

// rebase accepts the current state of every handle as the new baseline.
func (inv *invocation) rebase() {
	for _, info := range inv.infos {
		inv.pre[info.Key] = info.Account()
	}
}

// verify enforces the host rules on everything programID changed since
// the last baseline.
func (inv *invocation) verify() error {
	var preHi, preLo, postHi, postLo uint64
	for _, info := range inv.infos {
		before := inv.pre[info.Key]
		after := info.Account()

		if err := checkAccount(inv.programID, before, after, info.IsWritable); err != nil {
			return fmt.Errorf("account %s: %w", info.Key, err)
		}

		var carry uint64
		preLo, carry = bits.Add64(preLo, before.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, after.Lamports, 0)
		postHi += carry
	}
	if preHi != postHi || preLo != postLo {
		return ledger.ErrUnbalancedInstruction
	}
	return nil
}

func checkAccount(
	programID ledger.Address,
	before, after ledger.Account,
	writable bool,
) error {
	ownerChanged := !before.Owner.Equals(after.Owner)
	dataChanged := !bytes.Equal(before.Data, after.Data)
	ownedByProgram := before.Owner.Equals(programID)

	if before.Executable != after.Executable {
		return ledger.ErrModifiedProgramID
	}
	if ownerChanged {
		if !writable || !ownedByProgram || !isZeroed(after.Data) {
			return ledger.ErrModifiedProgramID
		}
	}
	if after.Lamports < before.Lamports && !ownedByProgram {
		return ledger.ErrExternalLamportSpend
	}
	if after.Lamports != before.Lamports && !writable {
		return ledger.ErrReadonlyLamportChange
	}
	if dataChanged {
		if !writable {
			return ledger.ErrReadonlyDataModified
		}
		if !ownedByProgram {
			return ledger.ErrExternalAccountDataModified
		}
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
