package accountstore

import (
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

var accountsBucket = []byte("accounts")

// BoltFileName is the database file created inside the configured path.
const BoltFileName = "accounts.db"

// BoltStore keeps accounts in a single bbolt bucket keyed by raw address.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(config StoreConfig) (*BoltStore, error) {
	if err := config.checkConfig(); err != nil {
		return nil, fmt.Errorf("error checking config for BoltStore: %w", err)
	}

	path := filepath.Join(config.Paths[0], BoltFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", accountsBucket, err)
	}

	if log != nil {
		log.WithField("path", path).Info("opened bolt account store")
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) View(fn func(Txn) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTxn{bucket: tx.Bucket(accountsBucket)})
	})
}

func (b *BoltStore) Update(fn func(Txn) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTxn{bucket: tx.Bucket(accountsBucket), writable: true})
	})
}

func (b *BoltStore) Replace(entries []Entry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(accountsBucket); err != nil {
			return fmt.Errorf("dropping bucket %s: %w", accountsBucket, err)
		}
		bucket, err := tx.CreateBucket(accountsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", accountsBucket, err)
		}
		txn := &boltTxn{bucket: bucket, writable: true}
		for _, e := range entries {
			if err := txn.Put(e.Address, e.Account); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

type boltTxn struct {
	bucket   *bolt.Bucket
	writable bool
}

func (t *boltTxn) Get(addr ledger.Address) (ledger.Account, bool, error) {
	value := t.bucket.Get(addr[:])
	if value == nil {
		return ledger.Account{}, false, nil
	}
	acc, err := ledger.DecodeAccount(value)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("account %s: %w", addr, err)
	}
	return acc, true, nil
}

func (t *boltTxn) Put(addr ledger.Address, acc ledger.Account) error {
	if !t.writable {
		return errReadOnly
	}
	value, err := ledger.EncodeAccount(acc)
	if err != nil {
		return err
	}
	return t.bucket.Put(addr[:], value)
}

func (t *boltTxn) Delete(addr ledger.Address) error {
	if !t.writable {
		return errReadOnly
	}
	return t.bucket.Delete(addr[:])
}

func (t *boltTxn) ForEach(fn func(ledger.Address, ledger.Account) error) error {
	return t.bucket.ForEach(func(k, v []byte) error {
		addr, err := addressFromKey(k)
		if err != nil {
			return err
		}
		acc, err := ledger.DecodeAccount(v)
		if err != nil {
			return fmt.Errorf("account %s: %w", addr, err)
		}
		return fn(addr, acc)
	})
}
