// Package ledger defines the host ledger model the JSON metadata program
// runs against: accounts and the handles programs mutate, rent, and signed
// transactions.
package ledger

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Address locates an account.
type Address = solana.PublicKey

// SystemProgramID owns every account that no program has claimed.
var SystemProgramID = solana.SystemProgramID

// MaxPermittedDataIncrease bounds how much a single Realloc may grow an
// account.
const MaxPermittedDataIncrease = 10 * 1024

// MaxAccountDataLen is the largest account the host stores.
const MaxAccountDataLen = 10 * 1024 * 1024

// Account is the stored state at an address. The zero value with the
// system program as owner is what a never-written address reads as.
type Account struct { // A
	Owner      Address
	Lamports   uint64
	Data       []byte
	Executable bool
}

// DefaultAccount is the state of an address that holds nothing.
func DefaultAccount() Account { // A
	return Account{Owner: SystemProgramID}
}

// IsDefault reports whether a carries no state at all.
func (a Account) IsDefault() bool { // A
	return a.Owner.Equals(SystemProgramID) &&
		a.Lamports == 0 &&
		len(a.Data) == 0 &&
		!a.Executable
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (a Account) MarshalWithEncoder(enc *bin.Encoder) error { // A
	if err := enc.WriteBytes(a.Owner.Bytes(), false); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.Lamports, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.Data, true); err != nil {
		return err
	}
	return enc.WriteBool(a.Executable)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (a *Account) UnmarshalWithDecoder(dec *bin.Decoder) error { // A
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("read owner: %w", err)
	}
	lamports, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("read lamports: %w", err)
	}
	data, err := dec.ReadByteSlice()
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	executable, err := dec.ReadBool()
	if err != nil {
		return fmt.Errorf("read executable: %w", err)
	}

	a.Owner = solana.PublicKeyFromBytes(owner)
	a.Lamports = lamports
	a.Data = append([]byte(nil), data...)
	a.Executable = executable
	return nil
}

// EncodeAccount serializes a for storage.
func EncodeAccount(a Account) ([]byte, error) { // A
	buf := new(bytes.Buffer)
	if err := a.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount parses a stored account.
func DecodeAccount(data []byte) (Account, error) { // A
	var a Account
	dec := bin.NewBorshDecoder(data)
	if err := a.UnmarshalWithDecoder(dec); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	if dec.HasRemaining() {
		return Account{}, fmt.Errorf(
			"decode account: %d trailing bytes", dec.Remaining(),
		)
	}
	return a, nil
}

// AccountInfo is the handle a program receives for one instruction
// account. Changes to it are checked and committed by the host after the
// program returns.
type AccountInfo struct { // A
	Key        Address
	IsSigner   bool
	IsWritable bool
	Owner      Address
	Lamports   uint64
	Data       []byte
	Executable bool
}

// NewAccountInfo wraps a copy of acc for the given instruction account.
func NewAccountInfo( // A
	key Address,
	acc Account,
	isSigner, isWritable bool,
) *AccountInfo {
	return &AccountInfo{
		Key:        key,
		IsSigner:   isSigner,
		IsWritable: isWritable,
		Owner:      acc.Owner,
		Lamports:   acc.Lamports,
		Data:       append([]byte(nil), acc.Data...),
		Executable: acc.Executable,
	}
}

// Account returns the state a will commit.
func (a *AccountInfo) Account() Account { // A
	return Account{
		Owner:      a.Owner,
		Lamports:   a.Lamports,
		Data:       append([]byte(nil), a.Data...),
		Executable: a.Executable,
	}
}

// DataIsEmpty reports whether the account holds no data.
func (a *AccountInfo) DataIsEmpty() bool { // A
	return len(a.Data) == 0
}

// IsOwnedBy reports whether program owns a.
func (a *AccountInfo) IsOwnedBy(program Address) bool { // A
	return a.Owner.Equals(program)
}

// Realloc resizes the data to exactly newLen bytes. Existing bytes up to
// the smaller length are preserved and growth is zero-filled.
func (a *AccountInfo) Realloc(newLen int) error { // A
	if newLen < 0 || newLen > MaxAccountDataLen {
		return fmt.Errorf("%w: length %d", ErrInvalidRealloc, newLen)
	}
	if newLen > len(a.Data)+MaxPermittedDataIncrease {
		return fmt.Errorf(
			"%w: growth of %d bytes exceeds %d",
			ErrInvalidRealloc, newLen-len(a.Data), MaxPermittedDataIncrease,
		)
	}
	if newLen <= len(a.Data) {
		a.Data = a.Data[:newLen:newLen]
		return nil
	}
	grown := make([]byte, newLen)
	copy(grown, a.Data)
	a.Data = grown
	return nil
}

// Assign hands the account to a new owner program.
func (a *AccountInfo) Assign(owner Address) { // A
	a.Owner = owner
}
