package processor_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/internal/runtime"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/instruction"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/processor"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/state"
)

const startingBalance = 100_000_000_000

// tb is the part of testing.TB that *rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

type harness struct {
	store   *accountstore.MemoryStore
	rt      *runtime.Runtime
	program ledger.Address
	nonce   uint64
}

func newHarness(t tb) *harness {
	t.Helper()
	store := accountstore.NewMemoryStore()
	rt, err := runtime.New(runtime.Config{Store: store})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	rt.Register(address.ProgramID, processor.New(nil))
	return &harness{store: store, rt: rt, program: address.ProgramID}
}

func (h *harness) newFundedKey(t tb) solana.PrivateKey {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	if err := h.rt.Airdrop(context.Background(), key.PublicKey(), startingBalance); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	return key
}

func (h *harness) submit(t tb, ix ledger.Instruction, signers ...solana.PrivateKey) error {
	t.Helper()
	h.nonce++
	tx := ledger.NewTransaction(h.nonce, ix)
	if err := tx.Sign(signers...); err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err := h.rt.Execute(context.Background(), tx)
	return err
}

func (h *harness) submitBuilt(
	t tb,
	ix ledger.Instruction,
	buildErr error,
	signers ...solana.PrivateKey,
) error {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("build instruction: %v", buildErr)
	}
	return h.submit(t, ix, signers...)
}

func (h *harness) initialize(t tb, record, payer solana.PrivateKey) error {
	t.Helper()
	ix, err := instruction.NewInitialize(h.program, record.PublicKey(), payer.PublicKey())
	return h.submitBuilt(t, ix, err, record, payer)
}

func (h *harness) setValue(t tb, record ledger.Address, payer solana.PrivateKey, value string) error {
	t.Helper()
	ix, err := instruction.NewSetValue(h.program, record, payer.PublicKey(), value)
	return h.submitBuilt(t, ix, err, payer)
}

func (h *harness) appendValue(t tb, record ledger.Address, payer solana.PrivateKey, value string) error {
	t.Helper()
	ix, err := instruction.NewAppendValue(h.program, record, payer.PublicKey(), value)
	return h.submitBuilt(t, ix, err, payer)
}

func (h *harness) addAuthority(t tb, record ledger.Address, payer solana.PrivateKey, authority ledger.Address) error {
	t.Helper()
	ix, err := instruction.NewAddAuthority(h.program, record, payer.PublicKey(), authority)
	return h.submitBuilt(t, ix, err, payer)
}

func (h *harness) removeAuthority(t tb, record ledger.Address, payer solana.PrivateKey, authority ledger.Address) error {
	t.Helper()
	ix, err := instruction.NewRemoveAuthority(h.program, record, payer.PublicKey(), authority)
	return h.submitBuilt(t, ix, err, payer)
}

func (h *harness) close(t tb, record ledger.Address, payer solana.PrivateKey) error {
	t.Helper()
	ix, err := instruction.NewClose(h.program, record, payer.PublicKey())
	return h.submitBuilt(t, ix, err, payer)
}

func (h *harness) account(t tb, addr ledger.Address) ledger.Account {
	t.Helper()
	acc, err := h.rt.Account(context.Background(), addr)
	if err != nil {
		t.Fatalf("account %s: %v", addr, err)
	}
	return acc
}

// overwrite edits a stored account directly, bypassing the runtime.
func (h *harness) overwrite(t tb, addr ledger.Address, edit func(*ledger.Account)) {
	t.Helper()
	err := h.store.Update(func(txn accountstore.Txn) error {
		acc, err := accountstore.Load(txn, addr)
		if err != nil {
			return err
		}
		edit(&acc)
		return txn.Put(addr, acc)
	})
	if err != nil {
		t.Fatalf("overwrite %s: %v", addr, err)
	}
}

func (h *harness) metadataAddress(record ledger.Address) ledger.Address {
	addr, _ := address.MustFindMetadataAddress(h.program, record)
	return addr
}

func (h *harness) metadata(t tb, record ledger.Address) state.JsonMetadata {
	t.Helper()
	acc := h.account(t, h.metadataAddress(record))
	m, err := state.DecodeJsonMetadata(acc.Data)
	if err != nil {
		t.Fatalf("decode metadata of %s: %v", record, err)
	}
	return m
}

func (h *harness) value(t tb, record ledger.Address) string {
	t.Helper()
	return string(h.account(t, record).Data)
}

var _ tb = (*testing.T)(nil)
