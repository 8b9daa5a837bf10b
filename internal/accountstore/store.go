// Package accountstore persists ledger accounts. Every backend offers the
// same transactional view: a failed Update leaves the store untouched.
package accountstore

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

var log *logrus.Logger

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendBolt   = "bolt"
)

var (
	ErrClosed         = errors.New("accountstore: store closed")
	ErrUnknownBackend = errors.New("accountstore: unknown backend")
)

// Txn is a consistent view of the accounts inside View or Update.
type Txn interface {
	// Get returns the stored account and whether it exists.
	Get(addr ledger.Address) (ledger.Account, bool, error)
	Put(addr ledger.Address, acc ledger.Account) error
	Delete(addr ledger.Address) error
	// ForEach visits every stored account in address order.
	ForEach(fn func(addr ledger.Address, acc ledger.Account) error) error
}

// Entry is one account written by Store.Replace.
type Entry struct {
	Address ledger.Address
	Account ledger.Account
}

// Store is a transactional account database.
type Store interface {
	View(fn func(Txn) error) error
	Update(fn func(Txn) error) error
	// Replace drops every stored account and writes entries instead.
	// Backends that cannot fit the swap into one transaction write it in
	// batches, so a failed Replace may leave a partial set behind.
	Replace(entries []Entry) error
	Close() error
}

type StoreConfig struct {
	Backend          string
	Paths            []string // only the first path is used
	MinimumFreeSpace int      // in GB
	Logger           *logrus.Logger
}

// Open creates the store selected by config.Backend.
func Open(config StoreConfig) (Store, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	log = config.Logger

	switch config.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		return NewBadgerStore(config)
	case BackendBolt:
		return NewBoltStore(config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}

// Load reads addr, returning the default account when nothing is stored.
func Load(txn Txn, addr ledger.Address) (ledger.Account, error) {
	acc, ok, err := txn.Get(addr)
	if err != nil {
		return ledger.Account{}, err
	}
	if !ok {
		return ledger.DefaultAccount(), nil
	}
	return acc, nil
}
