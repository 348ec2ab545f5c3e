package clickhouse_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
	"supply-forecast/internal/storage/clickhouse"
	"supply-forecast/internal/storage/migrations"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *clickhouse.Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/forecasts", host, port.Port())
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		_ = container.Terminate(ctx)
	})

	return conn
}

func TestLedgerStore(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := clickhouse.NewLedgerStore(conn)
	id := uuid.New()

	rows := make([]forecast.LedgerRow, 10)
	for i := range rows {
		rows[i] = forecast.LedgerRow{Day: i, CircSupply: float64(100 + i), YearInflation: math.NaN()}
	}
	require.NoError(t, store.InsertBulk(ctx, id, rows))

	got, err := store.GetByRunID(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, r := range got {
		assert.Equal(t, i, r.Day)
		assert.Equal(t, float64(100+i), r.CircSupply)
		assert.True(t, math.IsNaN(r.YearInflation))
	}

	assert.ErrorIs(t, store.InsertBulk(ctx, id, rows[:1]), storage.ErrDuplicateKey)

	_, err = store.GetByRunID(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
