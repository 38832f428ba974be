package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/infrastructure/storage"
	"SerialWatch/internal/search"
)

// immediateDriver fires the job once on Start so tests exercise the sweep
// path without waiting on a ticker.
type immediateDriver struct {
	started bool
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(time.Now())
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSweeperRunsFleetSweep(t *testing.T) {
	t.Parallel()

	fs := &fakeSearch{
		marketplace: map[string][]search.Result{
			"SER1": {{URL: "https://shopee.tw/listing"}},
		},
	}
	svc, store := newTestService(t, fs, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	driver := &immediateDriver{}
	sweeper := NewSweeper(driver, svc)

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Stop(context.Background()))
	assert.True(t, driver.started)
	assert.True(t, driver.stopped)

	logs, err := store.ListScanLogs(context.Background(), serial.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ScanAutomatic, logs[0].ScanType)
}

type ownerlessStore struct {
	*storage.MemoryStore
}

func (s *ownerlessStore) ListOwnerIDs(context.Context) ([]int64, error) {
	return nil, errors.New("owners unavailable")
}

func TestSweeperLogsSweepFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	svc := NewService(ServiceDeps{
		Store:  &ownerlessStore{MemoryStore: storage.NewMemoryStore()},
		Search: &fakeSearch{},
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
	})

	sweeper := NewSweeper(&immediateDriver{}, svc)
	require.NoError(t, sweeper.Start(context.Background()))

	assert.Contains(t, buf.String(), "sweep run failed")
	assert.Contains(t, buf.String(), "owners unavailable")
}
