// Package address provides the fixed-width account identifiers used by
// the JSON metadata program and the derivation of a metadata record's
// address from the address of the JSON record it describes.
package address

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address is a 32 byte ledger account identifier.
type Address = solana.PublicKey

// Prefix is the first seed of every metadata address.
const Prefix = "JSON"

// Length is the number of bytes in an Address.
const Length = solana.PublicKeyLength

var (
	// ProgramID is the default identity of the JSON metadata program.
	ProgramID = solana.MustPublicKeyFromBase58(
		"jsonDR1w3Dp3aBiVFcbUGfKFyNmUD65wwveiVG6DUnU",
	)

	// SystemProgramID is the host's default owner of unclaimed accounts.
	SystemProgramID = solana.SystemProgramID
)

// ErrDerivationMismatch is returned when a claimed metadata address is
// not the one derived from its JSON record.
var ErrDerivationMismatch = errors.New("address: derived address mismatch")

// MetadataSeeds returns the seed tuple of the metadata record for
// jsonAccount, without the bump.
func MetadataSeeds( // A
	programID Address,
	jsonAccount Address,
) [][]byte {
	return [][]byte{
		[]byte(Prefix),
		programID.Bytes(),
		jsonAccount.Bytes(),
	}
}

// FindMetadataAddress derives the metadata record address of jsonAccount
// under programID and returns it with its canonical bump seed.
func FindMetadataAddress( // A
	programID Address,
	jsonAccount Address,
) (Address, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		MetadataSeeds(programID, jsonAccount),
		programID,
	)
	if err != nil {
		return Address{}, 0, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, bump, nil
}

// MustFindMetadataAddress is FindMetadataAddress for callers that treat a
// failed search as a programming error.
func MustFindMetadataAddress(programID, jsonAccount Address) (Address, uint8) { // A
	addr, bump, err := FindMetadataAddress(programID, jsonAccount)
	if err != nil {
		panic(err)
	}
	return addr, bump
}

// SignerSeeds returns the full seed tuple including the bump, as used to
// sign for the derived address during account creation.
func SignerSeeds( // A
	programID Address,
	jsonAccount Address,
	bump uint8,
) [][]byte {
	return append(MetadataSeeds(programID, jsonAccount), []byte{bump})
}

// AssertDerivation re-derives the metadata address of jsonAccount and
// checks that it equals claimed. It returns the canonical bump.
func AssertDerivation( // A
	programID Address,
	claimed Address,
	jsonAccount Address,
) (uint8, error) {
	derived, bump, err := FindMetadataAddress(programID, jsonAccount)
	if err != nil {
		return 0, err
	}
	if !derived.Equals(claimed) {
		return 0, fmt.Errorf(
			"%w: expected %s, got %s",
			ErrDerivationMismatch, derived, claimed,
		)
	}
	return bump, nil
}

// CreateProgramAddress verifies a full seed tuple (bump included) and
// returns the address it produces.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	return solana.CreateProgramAddress(seeds, programID)
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	addr, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	return addr, nil
}

// FromBytes copies a 32 byte slice into an Address.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Length {
		return Address{}, fmt.Errorf(
			"invalid address length: expected %d, got %d",
			Length, len(b),
		)
	}
	return solana.PublicKeyFromBytes(b), nil
}
