package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
)

func TestCheckHealthAggregates(t *testing.T) {
	m := NewHealthMonitor()
	m.Register("good", func(context.Context) error { return nil })
	m.Register("bad", func(context.Context) error { return errors.New("broken") })

	report := m.CheckHealth(context.Background())
	assert.False(t, report.Healthy)
	assert.Equal(t, map[string]string{"good": "ok", "bad": "broken"}, report.Checks)
	assert.NotZero(t, report.CheckedAt)

	m.Register("bad", func(context.Context) error { return nil })
	assert.True(t, m.CheckHealth(context.Background()).Healthy)
}

func TestCheckHealthWithoutChecksIsHealthy(t *testing.T) {
	report := NewHealthMonitor().CheckHealth(context.Background())
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Checks)
}

func TestStoreCheck(t *testing.T) {
	store := accountstore.NewMemoryStore()
	check := StoreCheck(store)
	assert.NoError(t, check(context.Background()))

	_ = store.Close()
	assert.ErrorIs(t, check(context.Background()), accountstore.ErrClosed)
}

func TestDiskSpaceCheck(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, DiskSpaceCheck(dir, 0)(context.Background()))
	assert.Error(t, DiskSpaceCheck(dir, 1<<40)(context.Background()))
	assert.Error(t, DiskSpaceCheck(dir+"/missing/deeper", 0)(context.Background()))
}
