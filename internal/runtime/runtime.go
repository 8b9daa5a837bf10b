// Package runtime is the host ledger: it verifies transactions, runs their
// instructions against the registered programs, checks what each program
// changed and commits the result atomically to an account store.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// recentSignatureLimit bounds the replay-protection window.
const recentSignatureLimit = 4096

type Config struct {
	Store  accountstore.Store
	Rent   ledger.Rent
	Logger *slog.Logger
}

// Runtime executes transactions one at a time.
type Runtime struct {
	mu       sync.Mutex
	store    accountstore.Store
	rent     ledger.Rent
	log      *slog.Logger
	programs map[ledger.Address]ledger.Program

	recent      map[solana.Signature]struct{}
	recentOrder []solana.Signature
}

// Receipt describes a committed transaction.
type Receipt struct {
	ID   uuid.UUID
	Logs []string
}

func New(cfg Config) (*Runtime, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("runtime: store is required")
	}
	if cfg.Rent == (ledger.Rent{}) {
		cfg.Rent = ledger.DefaultRent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runtime{
		store:    cfg.Store,
		rent:     cfg.Rent,
		log:      cfg.Logger,
		programs: make(map[ledger.Address]ledger.Program),
		recent:   make(map[solana.Signature]struct{}),
	}, nil
}

// Register makes program callable at id.
func (r *Runtime) Register(id ledger.Address, program ledger.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = program
}

// Exclusive runs fn while no transaction executes. Restores use it so a
// commit cannot land between dropping and rewriting the accounts.
func (r *Runtime) Exclusive(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

// Rent returns the rent parameters programs run with.
func (r *Runtime) Rent() ledger.Rent { return r.rent }

// Execute verifies and runs tx. Either every instruction succeeds and all
// changes are committed, or nothing is.
func (r *Runtime) Execute(ctx context.Context, tx *ledger.Transaction) (Receipt, error) {
	receipt := Receipt{ID: uuid.New()}
	log := r.log.With("execution_id", receipt.ID.String())

	if err := ctx.Err(); err != nil {
		return receipt, err
	}
	if len(tx.Message.Instructions) == 0 {
		return receipt, ledger.ErrEmptyTransaction
	}
	verified, err := tx.VerifySignatures()
	if err != nil {
		log.Warn("rejected transaction", "error", err)
		return receipt, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(tx.Signatures) > 0 {
		if _, seen := r.recent[tx.Signatures[0].Signature]; seen {
			return receipt, ErrAlreadyProcessed
		}
	}

	err = r.store.Update(func(txn accountstore.Txn) error {
		working := make(map[ledger.Address]ledger.Account)
		for i, ix := range tx.Message.Instructions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.executeInstruction(txn, working, verified, ix, &receipt.Logs); err != nil {
				return &InstructionError{Index: i, Err: err}
			}
		}
		return commit(txn, working)
	})
	if err != nil {
		log.Info("transaction failed", "error", err, "logs", len(receipt.Logs))
		return receipt, err
	}

	if len(tx.Signatures) > 0 {
		r.remember(tx.Signatures[0].Signature)
	}
	log.Debug("transaction committed",
		"instructions", len(tx.Message.Instructions),
		"logs", len(receipt.Logs))
	return receipt, nil
}

func (r *Runtime) executeInstruction(
	txn accountstore.Txn,
	working map[ledger.Address]ledger.Account,
	verified map[ledger.Address]bool,
	ix ledger.Instruction,
	logs *[]string,
) error {
	program, ok := r.programs[ix.ProgramID]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownProgram, ix.ProgramID)
	}

	// Duplicate metas share one handle with merged privileges.
	handles := make(map[ledger.Address]*ledger.AccountInfo, len(ix.Accounts))
	inv := &invocation{
		programID: ix.ProgramID,
		rent:      r.rent,
		pre:       make(map[ledger.Address]ledger.Account, len(ix.Accounts)),
		logs:      logs,
	}
	accounts := make([]*ledger.AccountInfo, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		info, ok := handles[meta.PublicKey]
		if !ok {
			acc, err := loadWorking(txn, working, meta.PublicKey)
			if err != nil {
				return err
			}
			info = ledger.NewAccountInfo(meta.PublicKey, acc, false, false)
			handles[meta.PublicKey] = info
			inv.infos = append(inv.infos, info)
			inv.pre[meta.PublicKey] = acc
		}
		info.IsSigner = info.IsSigner || (meta.IsSigner && verified[meta.PublicKey])
		info.IsWritable = info.IsWritable || meta.IsWritable
		accounts = append(accounts, info)
	}

	*logs = append(*logs, fmt.Sprintf("Program %s invoke", ix.ProgramID))
	if err := program.Process(inv, accounts, ix.Data); err != nil {
		*logs = append(*logs, fmt.Sprintf("Program %s failed: %v", ix.ProgramID, err))
		return err
	}
	if err := inv.verify(); err != nil {
		return err
	}
	*logs = append(*logs, fmt.Sprintf("Program %s success", ix.ProgramID))

	for _, info := range inv.infos {
		working[info.Key] = info.Account()
	}
	return nil
}

func loadWorking(
	txn accountstore.Txn,
	working map[ledger.Address]ledger.Account,
	addr ledger.Address,
) (ledger.Account, error) {
	if acc, ok := working[addr]; ok {
		return acc, nil
	}
	return accountstore.Load(txn, addr)
}

// commit writes the working set. Accounts without lamports are removed.
func commit(txn accountstore.Txn, working map[ledger.Address]ledger.Account) error {
	for addr, acc := range working {
		if acc.Lamports == 0 {
			if err := txn.Delete(addr); err != nil {
				return err
			}
			continue
		}
		if err := txn.Put(addr, acc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) remember(sig solana.Signature) {
	r.recent[sig] = struct{}{}
	r.recentOrder = append(r.recentOrder, sig)
	if len(r.recentOrder) > recentSignatureLimit {
		delete(r.recent, r.recentOrder[0])
		r.recentOrder = r.recentOrder[1:]
	}
}

// Airdrop credits lamports to addr out of thin air. It is the only way
// lamports enter the ledger.
func (r *Runtime) Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.Update(func(txn accountstore.Txn) error {
		acc, err := accountstore.Load(txn, addr)
		if err != nil {
			return err
		}
		if acc.Lamports > math.MaxUint64-lamports {
			return fmt.Errorf("airdrop to %s: lamport overflow", addr)
		}
		acc.Lamports += lamports
		r.log.Debug("airdrop", "address", addr.String(), "lamports", lamports)
		return txn.Put(addr, acc)
	})
}

// Account reads the committed state of addr.
func (r *Runtime) Account(ctx context.Context, addr ledger.Address) (ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Account{}, err
	}
	var acc ledger.Account
	err := r.store.View(func(txn accountstore.Txn) error {
		var err error
		acc, err = accountstore.Load(txn, addr)
		return err
	})
	return acc, err
}
