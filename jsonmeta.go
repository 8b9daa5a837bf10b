// Package jsonmeta runs the JSON metadata program on a local ledger: an
// account store, the transaction runtime and the program registered in it.
package jsonmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/internal/backup"
	"github.com/i5heu/ouroboros-jsonmeta/internal/health"
	"github.com/i5heu/ouroboros-jsonmeta/internal/runtime"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	backupapi "github.com/i5heu/ouroboros-jsonmeta/pkg/backup"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/monitor"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/processor"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/state"
)

var (
	ErrNotStarted = errors.New("jsonmeta: node not started")
	ErrClosed     = errors.New("jsonmeta: node closed")
	ErrNotFound   = errors.New("jsonmeta: record not found")
)

// Node is the main handle. It owns the account store, the runtime and the
// lifecycle of background components.
type Node struct {
	log    *slog.Logger
	config Config

	mu      sync.RWMutex
	store   accountstore.Store
	rt      *runtime.Runtime
	backups *backup.DefaultBackupManager
	health  *health.DefaultHealthMonitor

	stopGC context.CancelFunc
	gcDone chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
}

// Record is an initialized JSON record together with its metadata.
type Record struct {
	Address         ledger.Address
	MetadataAddress ledger.Address
	Value           json.RawMessage
	Metadata        state.JsonMetadata
}

// New constructs a node. New does not perform I/O; call Start to open
// the store.
func New(conf Config) (*Node, error) { // A
	if conf.Backend == "" {
		conf.Backend = accountstore.BackendBadger
	}
	if conf.Backend != accountstore.BackendMemory && len(conf.Paths) == 0 {
		return nil, fmt.Errorf("at least one path must be provided in config")
	}
	if conf.ProgramID.IsZero() {
		conf.ProgramID = address.ProgramID
	}
	if conf.Logger == nil {
		conf.Logger = defaultLogger()
	}
	return &Node{
		log:    conf.Logger,
		config: conf,
	}, nil
}

// Start opens the account store and registers the program. Start is safe
// to call multiple times; only the first call has effect.
func (n *Node) Start(ctx context.Context) error { // PA
	var startErr error
	n.startOnce.Do(func() {
		if n.config.Backend != accountstore.BackendMemory {
			if err := os.MkdirAll(n.config.Paths[0], 0o700); err != nil {
				startErr = fmt.Errorf("mkdir %s: %w", n.config.Paths[0], err)
				return
			}
		}

		store, err := accountstore.Open(accountstore.StoreConfig{
			Backend:          n.config.Backend,
			Paths:            n.config.Paths,
			MinimumFreeSpace: int(n.config.MinimumFreeGB),
			Logger:           n.config.StoreLogger,
		})
		if err != nil {
			startErr = fmt.Errorf("open account store: %w", err)
			return
		}

		rt, err := runtime.New(runtime.Config{Store: store, Logger: n.log})
		if err != nil {
			_ = store.Close()
			startErr = fmt.Errorf("init runtime: %w", err)
			return
		}
		rt.Register(n.config.ProgramID, processor.New(n.log))

		n.mu.Lock()
		n.store = store
		n.rt = rt
		n.backups = backup.NewBackupManager(store)
		n.health = health.NewHealthMonitor()
		n.health.Register("store", health.StoreCheck(store))
		if n.config.Backend != accountstore.BackendMemory {
			n.health.Register("disk", health.DiskSpaceCheck(n.config.Paths[0], n.config.MinimumFreeGB))
		}
		n.mu.Unlock()

		n.startGarbageCollection()

		n.started.Store(true)
		n.log.Info("jsonmeta node started",
			"backend", n.config.Backend,
			"program", n.config.ProgramID.String())
	})
	return startErr
}

// Run starts the node, then blocks until ctx is canceled, and finally
// performs a bounded graceful shutdown.
func (n *Node) Run(ctx context.Context) error { // A
	if err := n.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.Close(shutdownCtx)
}

// Close stops background components and closes the store. Close is
// idempotent.
func (n *Node) Close(ctx context.Context) error { // A
	var closeErr error
	n.closeOnce.Do(func() {
		if n.stopGC != nil {
			n.stopGC()
			select {
			case <-n.gcDone:
			case <-ctx.Done():
				closeErr = errors.Join(closeErr, fmt.Errorf("wait for collector: %w", ctx.Err()))
			}
		}

		n.mu.Lock()
		store := n.store
		n.store = nil
		n.rt = nil
		n.backups = nil
		n.health = nil
		n.mu.Unlock()

		if store != nil {
			if err := store.Close(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("close account store: %w", err))
			}
		}
		n.log.Info("jsonmeta node closed")
	})
	return closeErr
}

// ProgramID is the address the JSON metadata program runs at.
func (n *Node) ProgramID() ledger.Address { return n.config.ProgramID }

func (n *Node) runtimeHandle() (*runtime.Runtime, error) { // A
	if !n.started.Load() {
		return nil, ErrNotStarted
	}
	n.mu.RLock()
	rt := n.rt
	n.mu.RUnlock()
	if rt == nil {
		return nil, ErrClosed
	}
	return rt, nil
}

func (n *Node) backupHandle() (*backup.DefaultBackupManager, error) { // A
	if !n.started.Load() {
		return nil, ErrNotStarted
	}
	n.mu.RLock()
	m := n.backups
	n.mu.RUnlock()
	if m == nil {
		return nil, ErrClosed
	}
	return m, nil
}

// Submit executes a signed transaction.
func (n *Node) Submit(ctx context.Context, tx *ledger.Transaction) (runtime.Receipt, error) { // A
	rt, err := n.runtimeHandle()
	if err != nil {
		return runtime.Receipt{}, err
	}
	return rt.Execute(ctx, tx)
}

// Airdrop credits lamports to addr.
func (n *Node) Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) error { // A
	rt, err := n.runtimeHandle()
	if err != nil {
		return err
	}
	return rt.Airdrop(ctx, addr, lamports)
}

// Account returns the stored account at addr, or the default account.
func (n *Node) Account(ctx context.Context, addr ledger.Address) (ledger.Account, error) { // A
	rt, err := n.runtimeHandle()
	if err != nil {
		return ledger.Account{}, err
	}
	return rt.Account(ctx, addr)
}

// Value returns the JSON document stored at jsonAddr.
func (n *Node) Value(ctx context.Context, jsonAddr ledger.Address) (json.RawMessage, error) { // A
	acc, err := n.Account(ctx, jsonAddr)
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(n.config.ProgramID) || len(acc.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jsonAddr)
	}
	return json.RawMessage(acc.Data), nil
}

// Metadata returns the metadata record belonging to jsonAddr.
func (n *Node) Metadata(ctx context.Context, jsonAddr ledger.Address) (state.JsonMetadata, error) { // A
	metaAddr, _, err := address.FindMetadataAddress(n.config.ProgramID, jsonAddr)
	if err != nil {
		return state.JsonMetadata{}, err
	}
	acc, err := n.Account(ctx, metaAddr)
	if err != nil {
		return state.JsonMetadata{}, err
	}
	if !acc.Owner.Equals(n.config.ProgramID) || len(acc.Data) == 0 {
		return state.JsonMetadata{}, fmt.Errorf("%w: metadata of %s", ErrNotFound, jsonAddr)
	}
	return state.DecodeJsonMetadata(acc.Data)
}

// Record returns the value and metadata of jsonAddr.
func (n *Node) Record(ctx context.Context, jsonAddr ledger.Address) (Record, error) { // A
	value, err := n.Value(ctx, jsonAddr)
	if err != nil {
		return Record{}, err
	}
	metadata, err := n.Metadata(ctx, jsonAddr)
	if err != nil {
		return Record{}, err
	}
	metaAddr, _, err := address.FindMetadataAddress(n.config.ProgramID, jsonAddr)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Address:         jsonAddr,
		MetadataAddress: metaAddr,
		Value:           value,
		Metadata:        metadata,
	}, nil
}

// Snapshot writes a compressed copy of every account to w.
func (n *Node) Snapshot(ctx context.Context, w io.Writer) error { // A
	m, err := n.backupHandle()
	if err != nil {
		return err
	}
	return m.BackupData(ctx, w)
}

// Restore replaces all accounts with the snapshot read from r. Submits
// wait until the restore finishes.
func (n *Node) Restore(ctx context.Context, r io.Reader) error { // A
	m, err := n.backupHandle()
	if err != nil {
		return err
	}
	rt, err := n.runtimeHandle()
	if err != nil {
		return err
	}
	return rt.Exclusive(func() error {
		return m.RestoreData(ctx, r)
	})
}

// BackupStatus reports the last snapshot and restore.
func (n *Node) BackupStatus(ctx context.Context) (backupapi.BackupStatus, error) { // A
	m, err := n.backupHandle()
	if err != nil {
		return backupapi.BackupStatus{}, err
	}
	return m.GetBackupStatus(ctx)
}

// Health runs the node's health checks.
func (n *Node) Health(ctx context.Context) (monitor.NodeHealth, error) { // A
	if !n.started.Load() {
		return monitor.NodeHealth{}, ErrNotStarted
	}
	n.mu.RLock()
	h := n.health
	n.mu.RUnlock()
	if h == nil {
		return monitor.NodeHealth{}, ErrClosed
	}
	return h.CheckHealth(ctx), nil
}

type cleaner interface {
	Clean() error
}

func (n *Node) startGarbageCollection() {
	c, ok := n.store.(cleaner)
	if !ok || n.config.GarbageCollectionInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.stopGC = cancel
	n.gcDone = make(chan struct{})

	go func() {
		defer close(n.gcDone)
		ticker := time.NewTicker(n.config.GarbageCollectionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Clean(); err != nil {
					n.log.Warn("account store garbage collection failed", "error", err)
				}
			}
		}
	}()
}
