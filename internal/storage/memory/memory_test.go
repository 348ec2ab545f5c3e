package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
)

func record(created time.Time) *storage.RunRecord {
	r := storage.NewRunRecord(storage.KindSimulate, 30, 7, "base", []byte(`{"horizon_days":30}`),
		forecast.Summary{Days: 30, FinalCircSupply: 1e6})
	r.CreatedAt = created
	return &r
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	r := record(time.Now())

	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "base", got.Scenario)
	assert.Equal(t, 1e6, got.Summary.FinalCircSupply)

	// returned copies do not alias the stored record
	got.Config[0] = 'X'
	again, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Config[0])
}

func TestRunStore_Errors(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	r := record(time.Now())

	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &storage.RunRecord{}), storage.ErrInvalidInput)

	_, err := store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		r := record(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, r.ID)
		require.NoError(t, store.Insert(ctx, r))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	top, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ids[3], top[1].ID)
}

func TestLedgerStore_InsertAndGet(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	id := uuid.New()

	rows := []forecast.LedgerRow{{Day: 2, CircSupply: 3}, {Day: 0, CircSupply: 1}, {Day: 1, CircSupply: 2}}
	require.NoError(t, store.InsertBulk(ctx, id, rows))

	got, err := store.GetByRunID(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, i, r.Day)
		assert.Equal(t, float64(i+1), r.CircSupply)
	}

	assert.ErrorIs(t, store.InsertBulk(ctx, id, rows), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertBulk(ctx, uuid.New(), []forecast.LedgerRow{{Day: 1}, {Day: 1}}), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertBulk(ctx, uuid.Nil, rows), storage.ErrInvalidInput)

	_, err = store.GetByRunID(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArchive_SaveAndLedger(t *testing.T) {
	ctx := context.Background()
	archive := &storage.Archive{Runs: NewRunStore(), Ledgers: NewLedgerStore()}
	r := record(time.Now())

	require.NoError(t, archive.Save(ctx, r, []forecast.LedgerRow{{Day: 0}, {Day: 1}}))

	rows, err := archive.Ledger(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = archive.Ledger(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = archive.Save(ctx, r, []forecast.LedgerRow{{Day: 0}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_ConcurrentInsert(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Insert(ctx, record(time.Now())))
		}()
	}
	wg.Wait()

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
