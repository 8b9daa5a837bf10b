// Package health runs the health checks of a jsonmeta node.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/disk"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/monitor"
)

// checkTimeout bounds a single check.
const checkTimeout = 5 * time.Second

// DefaultHealthMonitor implements the HealthMonitor interface.
type DefaultHealthMonitor struct {
	mu     sync.RWMutex
	checks map[string]monitor.Check
}

// NewHealthMonitor creates a monitor without checks.
func NewHealthMonitor() *DefaultHealthMonitor {
	return &DefaultHealthMonitor{checks: make(map[string]monitor.Check)}
}

// Register adds or replaces the check called name.
func (m *DefaultHealthMonitor) Register(name string, check monitor.Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// CheckHealth runs every check in name order.
func (m *DefaultHealthMonitor) CheckHealth(ctx context.Context) monitor.NodeHealth {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := make(map[string]monitor.Check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()
	sort.Strings(names)

	report := monitor.NodeHealth{
		Healthy:   true,
		Checks:    make(map[string]string, len(names)),
		CheckedAt: time.Now().Unix(),
	}
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](cctx)
		cancel()
		if err != nil {
			report.Healthy = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}

// StoreCheck reports whether store still serves reads.
func StoreCheck(store accountstore.Store) monitor.Check {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return store.View(func(accountstore.Txn) error { return nil })
	}
}

// DiskSpaceCheck fails when the file system holding path has less than
// minimumFreeGB gigabytes free.
func DiskSpaceCheck(path string, minimumFreeGB uint) monitor.Check {
	return func(ctx context.Context) error {
		usage, err := disk.Usage(path)
		if err != nil {
			return fmt.Errorf("disk usage of %s: %w", path, err)
		}
		freeGB := usage.Free / (1024 * 1024 * 1024)
		if freeGB < uint64(minimumFreeGB) {
			return fmt.Errorf("%d GB free on %s, need %d GB", freeGB, path, minimumFreeGB)
		}
		return nil
	}
}

// Ensure DefaultHealthMonitor implements the HealthMonitor interface.
var _ monitor.HealthMonitor = (*DefaultHealthMonitor)(nil)
