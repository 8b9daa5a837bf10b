package backup

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/internal/testutil"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

func fill(t *testing.T, store accountstore.Store, accounts map[ledger.Address]ledger.Account) {
	t.Helper()
	require.NoError(t, store.Update(func(txn accountstore.Txn) error {
		for addr, acc := range accounts {
			if err := txn.Put(addr, acc); err != nil {
				return err
			}
		}
		return nil
	}))
}

func dump(t *testing.T, store accountstore.Store) map[ledger.Address]ledger.Account {
	t.Helper()
	out := map[ledger.Address]ledger.Account{}
	require.NoError(t, store.View(func(txn accountstore.Txn) error {
		return txn.ForEach(func(addr ledger.Address, acc ledger.Account) error {
			out[addr] = acc
			return nil
		})
	}))
	return out
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, accounts := testutil.Accounts(20)

	src := accountstore.NewMemoryStore()
	fill(t, src, accounts)

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	dst := accountstore.NewMemoryStore()
	_, stale := testutil.Accounts(3)
	fill(t, dst, stale)

	n, err = Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, accounts, dump(t, dst), "import replaces existing accounts")
}

func TestExportEmptyStore(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	n, err := Export(ctx, accountstore.NewMemoryStore(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	dst := accountstore.NewMemoryStore()
	n, err = Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, dump(t, dst))
}

func TestImportRejectsForeignData(t *testing.T) {
	ctx := context.Background()
	dst := accountstore.NewMemoryStore()
	_, existing := testutil.Accounts(2)
	fill(t, dst, existing)

	_, err := Import(ctx, dst, bytes.NewReader([]byte("plain text")))
	assert.ErrorIs(t, err, ErrBadMagic)

	var wrapped bytes.Buffer
	xw, err := xz.NewWriter(&wrapped)
	require.NoError(t, err)
	_, err = xw.Write([]byte("some other xz payload"))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	_, err = Import(ctx, dst, &wrapped)
	assert.ErrorIs(t, err, ErrBadMagic)

	assert.Equal(t, existing, dump(t, dst), "failed import leaves the store untouched")
}

func TestImportRejectsTruncatedSnapshot(t *testing.T) {
	ctx := context.Background()
	_, accounts := testutil.Accounts(4)
	src := accountstore.NewMemoryStore()
	fill(t, src, accounts)

	var buf bytes.Buffer
	_, err := Export(ctx, src, &buf)
	require.NoError(t, err)

	// Re-pack the payload without the trailing end tag.
	xr, err := xz.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var raw bytes.Buffer
	_, err = raw.ReadFrom(xr)
	require.NoError(t, err)

	var cut bytes.Buffer
	xw, err := xz.NewWriter(&cut)
	require.NoError(t, err)
	_, err = xw.Write(raw.Bytes()[:raw.Len()-1])
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	_, err = Import(ctx, accountstore.NewMemoryStore(), &cut)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestExportHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, accounts := testutil.Accounts(2)
	src := accountstore.NewMemoryStore()
	fill(t, src, accounts)

	_, err := Export(ctx, src, &bytes.Buffer{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBackupManagerStatus(t *testing.T) {
	ctx := context.Background()
	_, accounts := testutil.Accounts(5)
	src := accountstore.NewMemoryStore()
	fill(t, src, accounts)

	m := NewBackupManager(src)
	var buf bytes.Buffer
	require.NoError(t, m.BackupData(ctx, &buf))

	status, err := m.GetBackupStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.BackupInProgress)
	assert.Equal(t, 5, status.LastBackupAccounts)
	assert.Equal(t, int64(buf.Len()), status.LastBackupSize)
	assert.NotZero(t, status.LastBackup)

	dst := NewBackupManager(accountstore.NewMemoryStore())
	require.NoError(t, dst.RestoreData(ctx, &buf))
	status, err = dst.GetBackupStatus(ctx)
	require.NoError(t, err)
	assert.NotZero(t, status.LastRestore)
	assert.Equal(t, accounts, dump(t, dst.store))
}

func TestBackupLargeStoreOnBadger(t *testing.T) {
	testutil.RequireLong(t)
	ctx := context.Background()

	_, accounts := testutil.Accounts(5_000)
	src, err := accountstore.Open(accountstore.StoreConfig{
		Backend: accountstore.BackendBadger,
		Paths:   []string{t.TempDir()},
	})
	require.NoError(t, err)
	defer src.Close()
	fill(t, src, accounts)

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	require.NoError(t, err)
	require.Equal(t, len(accounts), n)

	dst, err := accountstore.Open(accountstore.StoreConfig{
		Backend: accountstore.BackendBolt,
		Paths:   []string{t.TempDir()},
	})
	require.NoError(t, err)
	defer dst.Close()

	_, err = Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, dump(t, dst))
}

func TestRestoreLargeSnapshotIntoBadger(t *testing.T) {
	testutil.RequireLong(t)
	ctx := context.Background()

	store, err := accountstore.Open(accountstore.StoreConfig{
		Backend: accountstore.BackendBadger,
		Paths:   []string{t.TempDir()},
	})
	require.NoError(t, err)
	defer store.Close()

	// More accounts than fit into one badger transaction.
	const total, batch = 120_000, 5_000
	_, accounts := testutil.Accounts(total)
	pending := map[ledger.Address]ledger.Account{}
	for addr, acc := range accounts {
		pending[addr] = acc
		if len(pending) == batch {
			fill(t, store, pending)
			pending = map[ledger.Address]ledger.Account{}
		}
	}
	fill(t, store, pending)

	var buf bytes.Buffer
	n, err := Export(ctx, store, &buf)
	require.NoError(t, err)
	require.Equal(t, total, n)

	n, err = Import(ctx, store, &buf)
	require.NoError(t, err)
	assert.Equal(t, total, n)
	assert.Equal(t, accounts, dump(t, store))
}
