package accountstore

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// accountPrefix namespaces account keys inside the badger keyspace.
var accountPrefix = []byte("account:")

var errReadOnly = errors.New("accountstore: write in read-only transaction")

// BadgerStore keeps accounts in a badger database under accountPrefix.
type BadgerStore struct {
	config   StoreConfig
	badgerDB *badger.DB
}

func NewBadgerStore(config StoreConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	log = config.Logger

	err := config.checkConfig()
	if err != nil {
		return nil, fmt.Errorf("error checking config for BadgerStore: %w", err)
	}

	opts := badger.DefaultOptions(config.Paths[0])
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100 // 100MB value log files
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		log.WithError(err).Error("opening badger")
		return nil, err
	}

	err = displayDiskUsage(config.Paths)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BadgerStore{
		config:   config,
		badgerDB: db,
	}, nil
}

func accountKey(addr ledger.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr[:]...)
}

func (k *BadgerStore) View(fn func(Txn) error) error {
	return k.badgerDB.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (k *BadgerStore) Update(fn func(Txn) error) error {
	return k.badgerDB.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, writable: true})
	})
}

// Replace drops the account prefix and streams entries through a
// WriteBatch. A single transaction cannot hold a large ledger.
func (k *BadgerStore) Replace(entries []Entry) error {
	if err := k.badgerDB.DropPrefix(accountPrefix); err != nil {
		return fmt.Errorf("dropping accounts: %w", err)
	}

	wb := k.badgerDB.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		value, err := ledger.EncodeAccount(e.Account)
		if err != nil {
			return err
		}
		if err := wb.Set(accountKey(e.Address), value); err != nil {
			return fmt.Errorf("write account %s: %w", e.Address, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush accounts: %w", err)
	}

	log.WithField("accounts", len(entries)).Info("replaced account store")
	return nil
}

func (k *BadgerStore) Close() error {
	if err := k.Clean(); err != nil {
		log.WithError(err).Warn("cleaning badger before close")
	}
	return k.badgerDB.Close()
}

// Clean syncs, flattens and garbage-collects the value log.
func (k *BadgerStore) Clean() error {
	err := k.badgerDB.Sync()
	if err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}

	err = k.badgerDB.Flatten(runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("error flattening db: %w", err)
	}
	log.Debug("DB Flattened")

	err = k.badgerDB.RunValueLogGC(0.1)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("error cleaning db: %w", err)
	}
	return nil
}

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Get(addr ledger.Address) (ledger.Account, bool, error) {
	item, err := t.txn.Get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	acc, err := ledger.DecodeAccount(value)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("account %s: %w", addr, err)
	}
	return acc, true, nil
}

func (t *badgerTxn) Put(addr ledger.Address, acc ledger.Account) error {
	if !t.writable {
		return errReadOnly
	}
	value, err := ledger.EncodeAccount(acc)
	if err != nil {
		return err
	}
	return t.txn.Set(accountKey(addr), value)
}

func (t *badgerTxn) Delete(addr ledger.Address) error {
	if !t.writable {
		return errReadOnly
	}
	return t.txn.Delete(accountKey(addr))
}

func (t *badgerTxn) ForEach(fn func(ledger.Address, ledger.Account) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = accountPrefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(accountPrefix); it.ValidForPrefix(accountPrefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		addr, err := addressFromKey(key[len(accountPrefix):])
		if err != nil {
			return err
		}
		acc, err := ledger.DecodeAccount(value)
		if err != nil {
			return fmt.Errorf("account %s: %w", addr, err)
		}
		if err := fn(addr, acc); err != nil {
			return err
		}
	}
	return nil
}

func addressFromKey(raw []byte) (ledger.Address, error) {
	var addr ledger.Address
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("corrupt account key of %d bytes", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
