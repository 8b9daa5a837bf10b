package address

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"pgregory.net/rapid"
)

func genAddress(t *rapid.T) Address { // A
	b := rapid.SliceOfN(rapid.Byte(), Length, Length).Draw(t, "address")
	return solana.PublicKeyFromBytes(b)
}

func TestFindMetadataAddressDeterministic(t *testing.T) { // A
	rapid.Check(t, func(t *rapid.T) {
		jsonAccount := genAddress(t)

		a1, b1, err := FindMetadataAddress(ProgramID, jsonAccount)
		if err != nil {
			t.Fatalf("derive: %v", err)
		}
		a2, b2, err := FindMetadataAddress(ProgramID, jsonAccount)
		if err != nil {
			t.Fatalf("derive again: %v", err)
		}
		if a1 != a2 || b1 != b2 {
			t.Fatalf("derivation not deterministic: (%s,%d) vs (%s,%d)", a1, b1, a2, b2)
		}
	})
}

func TestFindMetadataAddressMatchesSignerSeeds(t *testing.T) { // A
	rapid.Check(t, func(t *rapid.T) {
		jsonAccount := genAddress(t)

		derived, bump, err := FindMetadataAddress(ProgramID, jsonAccount)
		if err != nil {
			t.Fatalf("derive: %v", err)
		}
		created, err := CreateProgramAddress(SignerSeeds(ProgramID, jsonAccount, bump), ProgramID)
		if err != nil {
			t.Fatalf("create with bump %d: %v", bump, err)
		}
		if created != derived {
			t.Fatalf("seeds with bump produce %s, want %s", created, derived)
		}
		if derived.IsOnCurve() {
			t.Fatalf("derived address %s lies on the curve", derived)
		}
	})
}

func TestFindMetadataAddressDependsOnProgram(t *testing.T) { // A
	jsonAccount := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	a1, _ := MustFindMetadataAddress(ProgramID, jsonAccount)
	a2, _ := MustFindMetadataAddress(other, jsonAccount)
	if a1 == a2 {
		t.Fatal("different programs must derive different addresses")
	}
}

func TestAssertDerivation(t *testing.T) { // A
	jsonAccount := solana.NewWallet().PublicKey()
	derived, bump := MustFindMetadataAddress(ProgramID, jsonAccount)

	got, err := AssertDerivation(ProgramID, derived, jsonAccount)
	if err != nil {
		t.Fatalf("AssertDerivation: %v", err)
	}
	if got != bump {
		t.Errorf("bump = %d, want %d", got, bump)
	}

	_, err = AssertDerivation(ProgramID, jsonAccount, jsonAccount)
	if !errors.Is(err, ErrDerivationMismatch) {
		t.Errorf("expected ErrDerivationMismatch, got %v", err)
	}
}

func TestParseAndFromBytes(t *testing.T) { // A
	addr, err := Parse(ProgramID.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if addr != ProgramID {
		t.Errorf("Parse round trip mismatch")
	}

	if _, err := Parse("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}

	fb, err := FromBytes(ProgramID.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if fb != ProgramID {
		t.Errorf("FromBytes mismatch")
	}
	if _, err := FromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short input")
	}
}
