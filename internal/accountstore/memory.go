package accountstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// MemoryStore keeps accounts in a map. Update writes go to an overlay
// that is applied only when the callback succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[ledger.Address]ledger.Account
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[ledger.Address]ledger.Account)}
}

func (m *MemoryStore) View(fn func(Txn) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn(&memoryTxn{base: m.accounts})
}

func (m *MemoryStore) Update(fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	txn := &memoryTxn{
		base:     m.accounts,
		writes:   make(map[ledger.Address]ledger.Account),
		deletes:  make(map[ledger.Address]struct{}),
		writable: true,
	}
	if err := fn(txn); err != nil {
		return err
	}
	for addr := range txn.deletes {
		delete(m.accounts, addr)
	}
	for addr, acc := range txn.writes {
		m.accounts[addr] = acc
	}
	return nil
}

func (m *MemoryStore) Replace(entries []Entry) error {
	accounts := make(map[ledger.Address]ledger.Account, len(entries))
	for _, e := range entries {
		accounts[e.Address] = cloneAccount(e.Account)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.accounts = accounts
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.accounts = nil
	return nil
}

type memoryTxn struct {
	base     map[ledger.Address]ledger.Account
	writes   map[ledger.Address]ledger.Account
	deletes  map[ledger.Address]struct{}
	writable bool
}

func (t *memoryTxn) Get(addr ledger.Address) (ledger.Account, bool, error) {
	if acc, ok := t.writes[addr]; ok {
		return cloneAccount(acc), true, nil
	}
	if _, ok := t.deletes[addr]; ok {
		return ledger.Account{}, false, nil
	}
	acc, ok := t.base[addr]
	if !ok {
		return ledger.Account{}, false, nil
	}
	return cloneAccount(acc), true, nil
}

func (t *memoryTxn) Put(addr ledger.Address, acc ledger.Account) error {
	if !t.writable {
		return errReadOnly
	}
	delete(t.deletes, addr)
	t.writes[addr] = cloneAccount(acc)
	return nil
}

func (t *memoryTxn) Delete(addr ledger.Address) error {
	if !t.writable {
		return errReadOnly
	}
	delete(t.writes, addr)
	t.deletes[addr] = struct{}{}
	return nil
}

func (t *memoryTxn) ForEach(fn func(ledger.Address, ledger.Account) error) error {
	keys := make([]ledger.Address, 0, len(t.base)+len(t.writes))
	for addr := range t.base {
		if _, gone := t.deletes[addr]; gone {
			continue
		}
		if _, shadowed := t.writes[addr]; shadowed {
			continue
		}
		keys = append(keys, addr)
	}
	for addr := range t.writes {
		keys = append(keys, addr)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	for _, addr := range keys {
		acc, _, _ := t.Get(addr)
		if err := fn(addr, acc); err != nil {
			return err
		}
	}
	return nil
}

func cloneAccount(acc ledger.Account) ledger.Account {
	acc.Data = append([]byte(nil), acc.Data...)
	return acc
}
