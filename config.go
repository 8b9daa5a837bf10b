package jsonmeta

import (
	"log/slog"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// Config configures a node. Only Paths[0] is used at the moment.
type Config struct {
	// Paths contains data directories. Not needed for the memory backend.
	Paths []string
	// MinimumFreeGB is a free-space threshold checked when opening the store.
	MinimumFreeGB uint
	// Backend selects the account store: "badger" (default), "bolt" or "memory".
	Backend string
	// ProgramID is the address the JSON metadata program is registered at.
	// The zero address selects address.ProgramID.
	ProgramID ledger.Address
	// GarbageCollectionInterval is how often the badger store is compacted.
	// Zero disables the collector.
	GarbageCollectionInterval time.Duration
	// Logger is an optional structured logger. If nil, a stderr logger is used.
	Logger *slog.Logger
	// StoreLogger receives the account store's own logs.
	StoreLogger *logrus.Logger
}

func defaultLogger() *slog.Logger { // A
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h)
}
