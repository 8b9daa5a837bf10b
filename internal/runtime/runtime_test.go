package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

type programFunc func(ictx ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error

func (f programFunc) Process(ictx ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	return f(ictx, accounts, data)
}

type fixture struct {
	rt      *Runtime
	program ledger.Address
	payer   solana.PrivateKey
}

func newFixture(t *testing.T, program ledger.Program) *fixture {
	t.Helper()
	rt, err := New(Config{Store: accountstore.NewMemoryStore()})
	require.NoError(t, err)

	f := &fixture{
		rt:      rt,
		program: solana.NewWallet().PublicKey(),
		payer:   solana.NewWallet().PrivateKey,
	}
	rt.Register(f.program, program)
	require.NoError(t, rt.Airdrop(context.Background(), f.payer.PublicKey(), 10_000_000_000))
	return f
}

func (f *fixture) run(t *testing.T, metas []ledger.AccountMeta, keys ...solana.PrivateKey) (Receipt, error) {
	t.Helper()
	tx := ledger.NewTransaction(1, ledger.Instruction{
		ProgramID: f.program,
		Accounts:  metas,
	})
	require.NoError(t, tx.Sign(append(keys, f.payer)...))
	return f.rt.Execute(context.Background(), tx)
}

func (f *fixture) account(t *testing.T, addr ledger.Address) ledger.Account {
	t.Helper()
	acc, err := f.rt.Account(context.Background(), addr)
	require.NoError(t, err)
	return acc
}

func TestCreateAccountWithSigner(t *testing.T) {
	target := solana.NewWallet().PrivateKey
	f := newFixture(t, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		ictx.Log("creating", "size", 8)
		if err := ictx.System().CreateAccount(accs[0], accs[1], ictx.Rent().MinimumBalance(8), 8, ictx.ProgramID(), nil); err != nil {
			return err
		}
		copy(accs[1].Data, "payload!")
		return nil
	}))

	receipt, err := f.run(t, []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(target.PublicKey(), true, true),
	}, target)
	require.NoError(t, err)
	assert.Contains(t, receipt.Logs, "Program log: creating size=8")

	acc := f.account(t, target.PublicKey())
	assert.Equal(t, f.program, acc.Owner)
	assert.Equal(t, []byte("payload!"), acc.Data)
	assert.Equal(t, ledger.DefaultRent.MinimumBalance(8), acc.Lamports)
	assert.Equal(t, 10_000_000_000-ledger.DefaultRent.MinimumBalance(8), f.account(t, f.payer.PublicKey()).Lamports)
}

func TestCreateAccountRequiresTargetSignature(t *testing.T) {
	target := solana.NewWallet().PublicKey()
	f := newFixture(t, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		return ictx.System().CreateAccount(accs[0], accs[1], 1_000_000, 1, ictx.ProgramID(), nil)
	}))

	_, err := f.run(t, []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(target, true, false),
	})
	assert.ErrorIs(t, err, ledger.ErrMissingRequiredSignature)
	assert.True(t, f.account(t, target).IsDefault())
}

func TestCreateAccountWithSeeds(t *testing.T) {
	seed := []byte("seed")
	f := newFixture(t, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		_, bump, err := solana.FindProgramAddress([][]byte{seed}, ictx.ProgramID())
		if err != nil {
			return err
		}
		return ictx.System().CreateAccount(accs[0], accs[1], 1_000_000, 4, ictx.ProgramID(), [][]byte{seed, {bump}})
	}))
	derived, _, err := solana.FindProgramAddress([][]byte{seed}, f.program)
	require.NoError(t, err)

	_, err = f.run(t, []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(derived, true, false),
	})
	require.NoError(t, err)
	assert.Len(t, f.account(t, derived).Data, 4)

	_, err = f.run(t, []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(solana.NewWallet().PublicKey(), true, false),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidSeeds)
}

func TestCreateAccountPrefundedTarget(t *testing.T) {
	target := solana.NewWallet().PrivateKey
	f := newFixture(t, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		return ictx.System().CreateAccount(accs[0], accs[1], 1_000_000, 2, ictx.ProgramID(), nil)
	}))
	require.NoError(t, f.rt.Airdrop(context.Background(), target.PublicKey(), 400_000))

	_, err := f.run(t, []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(target.PublicKey(), true, true),
	}, target)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), f.account(t, target.PublicKey()).Lamports)
	assert.Equal(t, uint64(10_000_000_000-600_000), f.account(t, f.payer.PublicKey()).Lamports)
}

func TestHostRules(t *testing.T) {
	victim := solana.NewWallet().PublicKey()
	cases := map[string]struct {
		writable bool
		mutate   func(*ledger.AccountInfo)
		want     error
	}{
		"data of foreign account": {
			writable: true,
			mutate:   func(a *ledger.AccountInfo) { a.Data = []byte{1} },
			want:     ledger.ErrExternalAccountDataModified,
		},
		"debit foreign account": {
			writable: true,
			mutate:   func(a *ledger.AccountInfo) { a.Lamports-- },
			want:     ledger.ErrExternalLamportSpend,
		},
		"mint lamports": {
			writable: true,
			mutate:   func(a *ledger.AccountInfo) { a.Lamports++ },
			want:     ledger.ErrUnbalancedInstruction,
		},
		"credit read-only account": {
			writable: false,
			mutate:   func(a *ledger.AccountInfo) { a.Lamports++ },
			want:     ledger.ErrReadonlyLamportChange,
		},
		"steal ownership": {
			writable: true,
			mutate:   func(a *ledger.AccountInfo) { a.Owner = solana.NewWallet().PublicKey() },
			want:     ledger.ErrModifiedProgramID,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, programFunc(func(_ ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
				tc.mutate(accs[0])
				return nil
			}))
			require.NoError(t, f.rt.Airdrop(context.Background(), victim, 100))

			_, err := f.run(t, []ledger.AccountMeta{ledger.Meta(victim, tc.writable, false)})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, uint64(100), f.account(t, victim).Lamports)
		})
	}
}

func TestFailedInstructionRollsBackTransaction(t *testing.T) {
	target := solana.NewWallet().PrivateKey
	boom := errors.New("boom")
	calls := 0
	f := newFixture(t, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		calls++
		if calls == 2 {
			return boom
		}
		return ictx.System().CreateAccount(accs[0], accs[1], 1_000_000, 1, ictx.ProgramID(), nil)
	}))

	metas := []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(target.PublicKey(), true, true),
	}
	tx := ledger.NewTransaction(9,
		ledger.Instruction{ProgramID: f.program, Accounts: metas},
		ledger.Instruction{ProgramID: f.program, Accounts: metas},
	)
	require.NoError(t, tx.Sign(f.payer, target))

	_, err := f.rt.Execute(context.Background(), tx)
	var ixErr *InstructionError
	require.ErrorAs(t, err, &ixErr)
	assert.Equal(t, 1, ixErr.Index)
	assert.ErrorIs(t, err, boom)
	assert.True(t, f.account(t, target.PublicKey()).IsDefault())
	assert.Equal(t, uint64(10_000_000_000), f.account(t, f.payer.PublicKey()).Lamports)
}

func TestZeroLamportAccountsAreDeleted(t *testing.T) {
	owned := solana.NewWallet().PrivateKey
	f := newFixture(t, nil)
	f.rt.Register(f.program, programFunc(func(ictx ledger.InvokeContext, accs []*ledger.AccountInfo, data []byte) error {
		if len(data) == 0 {
			return ictx.System().CreateAccount(accs[0], accs[1], 1_000_000, 3, ictx.ProgramID(), nil)
		}
		accs[0].Lamports += accs[1].Lamports
		accs[1].Lamports = 0
		if err := accs[1].Realloc(0); err != nil {
			return err
		}
		accs[1].Assign(ledger.SystemProgramID)
		return nil
	}))

	metas := []ledger.AccountMeta{
		ledger.Meta(f.payer.PublicKey(), true, true),
		ledger.Meta(owned.PublicKey(), true, true),
	}
	_, err := f.run(t, metas, owned)
	require.NoError(t, err)

	tx := ledger.NewTransaction(2, ledger.Instruction{ProgramID: f.program, Accounts: metas, Data: []byte{1}})
	require.NoError(t, tx.Sign(f.payer, owned))
	_, err = f.rt.Execute(context.Background(), tx)
	require.NoError(t, err)

	assert.True(t, f.account(t, owned.PublicKey()).IsDefault())
	assert.Equal(t, uint64(10_000_000_000), f.account(t, f.payer.PublicKey()).Lamports)
}

func TestSignerFlagRequiresSignature(t *testing.T) {
	var sawSigner bool
	f := newFixture(t, programFunc(func(_ ledger.InvokeContext, accs []*ledger.AccountInfo, _ []byte) error {
		sawSigner = accs[0].IsSigner
		return nil
	}))

	_, err := f.run(t, []ledger.AccountMeta{ledger.Meta(f.payer.PublicKey(), false, true)})
	require.NoError(t, err)
	assert.True(t, sawSigner)

	tx := ledger.NewTransaction(3, ledger.Instruction{
		ProgramID: f.program,
		Accounts:  []ledger.AccountMeta{ledger.Meta(f.payer.PublicKey(), false, true)},
	})
	_, err = f.rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, ledger.ErrMissingRequiredSignature)
}

func TestReplayRejected(t *testing.T) {
	f := newFixture(t, programFunc(func(ledger.InvokeContext, []*ledger.AccountInfo, []byte) error {
		return nil
	}))
	tx := ledger.NewTransaction(4, ledger.Instruction{
		ProgramID: f.program,
		Accounts:  []ledger.AccountMeta{ledger.Meta(f.payer.PublicKey(), true, true)},
	})
	require.NoError(t, tx.Sign(f.payer))

	_, err := f.rt.Execute(context.Background(), tx)
	require.NoError(t, err)
	_, err = f.rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestUnknownProgramAndEmptyTransaction(t *testing.T) {
	f := newFixture(t, programFunc(func(ledger.InvokeContext, []*ledger.AccountInfo, []byte) error {
		return nil
	}))

	_, err := f.rt.Execute(context.Background(), ledger.NewTransaction(5))
	assert.ErrorIs(t, err, ledger.ErrEmptyTransaction)

	tx := ledger.NewTransaction(6, ledger.Instruction{ProgramID: solana.NewWallet().PublicKey()})
	_, err = f.rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, ledger.ErrUnknownProgram)
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t, programFunc(func(ledger.InvokeContext, []*ledger.AccountInfo, []byte) error {
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rt.Execute(ctx, ledger.NewTransaction(7, ledger.Instruction{ProgramID: f.program}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, f.rt.Airdrop(ctx, f.payer.PublicKey(), 1), context.Canceled)
}
