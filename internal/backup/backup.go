// Package backup writes and restores xz-compressed snapshots of an
// account store.
//
// A snapshot is an xz stream holding a magic header followed by frames.
// Each frame is a tag byte, the 32 byte address and the Borsh encoded
// account with a u32 length prefix. A zero tag ends the stream.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/ulikunitz/xz"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/backup"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

var magic = []byte("JSONMETA\x00SNAP\x01")

const (
	tagEnd     = 0
	tagAccount = 1
)

var (
	ErrBadMagic   = errors.New("backup: not a snapshot")
	ErrTruncated  = errors.New("backup: snapshot truncated")
	ErrInProgress = errors.New("backup: another backup is running")
)

// DefaultBackupManager implements the BackupManager interface.
type DefaultBackupManager struct {
	store accountstore.Store

	mu     sync.Mutex
	status backup.BackupStatus
}

// NewBackupManager creates a new DefaultBackupManager for store.
func NewBackupManager(store accountstore.Store) *DefaultBackupManager {
	return &DefaultBackupManager{store: store}
}

func (m *DefaultBackupManager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.BackupInProgress {
		return ErrInProgress
	}
	m.status.BackupInProgress = true
	return nil
}

func (m *DefaultBackupManager) end(update func(*backup.BackupStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.BackupInProgress = false
	if update != nil {
		update(&m.status)
	}
}

// BackupData writes every stored account to writer.
func (m *DefaultBackupManager) BackupData(
	ctx context.Context,
	writer io.Writer,
) error {
	if err := m.begin(); err != nil {
		return err
	}

	counter := &countingWriter{w: writer}
	count, err := Export(ctx, m.store, counter)
	if err != nil {
		m.end(nil)
		return err
	}

	m.end(func(s *backup.BackupStatus) {
		s.LastBackup = time.Now().Unix()
		s.LastBackupSize = counter.n
		s.LastBackupAccounts = count
	})
	return nil
}

// RestoreData replaces the stored accounts with the snapshot in reader.
func (m *DefaultBackupManager) RestoreData(
	ctx context.Context,
	reader io.Reader,
) error {
	if err := m.begin(); err != nil {
		return err
	}

	if _, err := Import(ctx, m.store, reader); err != nil {
		m.end(nil)
		return err
	}

	m.end(func(s *backup.BackupStatus) {
		s.LastRestore = time.Now().Unix()
	})
	return nil
}

// GetBackupStatus returns the current backup status.
func (m *DefaultBackupManager) GetBackupStatus(
	ctx context.Context,
) (backup.BackupStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

// Export writes a snapshot of store to w and returns the number of
// accounts written.
func Export(
	ctx context.Context,
	store accountstore.Store,
	w io.Writer,
) (int, error) {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("backup: create xz writer: %w", err)
	}
	enc := bin.NewBorshEncoder(xw)

	if _, err := xw.Write(magic); err != nil {
		return 0, fmt.Errorf("backup: write header: %w", err)
	}

	count := 0
	err = store.View(func(txn accountstore.Txn) error {
		return txn.ForEach(func(addr ledger.Address, acc ledger.Account) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := ledger.EncodeAccount(acc)
			if err != nil {
				return err
			}
			if err := enc.WriteUint8(tagAccount); err != nil {
				return err
			}
			if err := enc.WriteBytes(addr[:], false); err != nil {
				return err
			}
			if err := enc.WriteBytes(raw, true); err != nil {
				return err
			}
			count++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("backup: export accounts: %w", err)
	}

	if err := enc.WriteUint8(tagEnd); err != nil {
		return 0, fmt.Errorf("backup: write trailer: %w", err)
	}
	if err := xw.Close(); err != nil {
		return 0, fmt.Errorf("backup: close xz writer: %w", err)
	}
	return count, nil
}

// Import replaces the contents of store with the snapshot read from r and
// returns the number of accounts restored. The whole snapshot is decoded
// before the store is touched, so an invalid snapshot changes nothing.
func Import(
	ctx context.Context,
	store accountstore.Store,
	r io.Reader,
) (int, error) {
	entries, err := readSnapshot(r)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := store.Replace(entries); err != nil {
		return 0, fmt.Errorf("backup: import accounts: %w", err)
	}
	return len(entries), nil
}

func readSnapshot(r io.Reader) ([]accountstore.Entry, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	raw, err := io.ReadAll(xr)
	if err != nil {
		return nil, fmt.Errorf("backup: decompress: %w", err)
	}
	if !bytes.HasPrefix(raw, magic) {
		return nil, ErrBadMagic
	}

	dec := bin.NewBorshDecoder(raw[len(magic):])
	var entries []accountstore.Entry
	for {
		tag, err := dec.ReadUint8()
		if err != nil {
			return nil, ErrTruncated
		}
		switch tag {
		case tagEnd:
			if dec.HasRemaining() {
				return nil, fmt.Errorf(
					"backup: %d bytes after trailer", dec.Remaining(),
				)
			}
			return entries, nil
		case tagAccount:
		default:
			return nil, fmt.Errorf("backup: unknown frame tag %d", tag)
		}

		key, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, ErrTruncated
		}
		body, err := dec.ReadByteSlice()
		if err != nil {
			return nil, ErrTruncated
		}
		acc, err := ledger.DecodeAccount(body)
		if err != nil {
			return nil, fmt.Errorf("backup: account %d: %w", len(entries), err)
		}
		entries = append(entries, accountstore.Entry{
			Address: solana.PublicKeyFromBytes(key),
			Account: acc,
		})
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Ensure DefaultBackupManager implements the BackupManager interface.
var _ backup.BackupManager = (*DefaultBackupManager)(nil)
