package data

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supply-forecast/internal/model"
	"supply-forecast/internal/process"
)

const driversDoc = `{"price":[0.1,0.2],"service_fees":[10,20],"tx_count":[1,2],"validators":[3,4]}`

func TestDriversJSONRoundTrip(t *testing.T) {
	v, err := DecodeDrivers(strings.NewReader(driversDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []float64{3, 4}, v.Validators)

	var buf bytes.Buffer
	require.NoError(t, WriteDriversJSON(&buf, v))
	again, err := DecodeDrivers(&buf)
	require.NoError(t, err)
	assert.Equal(t, v, again)

	path := filepath.Join(t.TempDir(), "drivers.json")
	require.NoError(t, os.WriteFile(path, []byte(driversDoc), 0o644))
	fromFile, err := LoadDriversJSON(path)
	require.NoError(t, err)
	assert.Equal(t, v, fromFile)
}

func TestDecodeDriversRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeDrivers(strings.NewReader(`{"prices":[1]}`))
	assert.ErrorIs(t, err, model.ErrDataContract)
}

func TestReadBalancesCSV(t *testing.T) {
	in := "address, Balance\nA, 1000\nB,\nC, 500.5\n"
	got, err := ReadBalancesCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 500.5}, got)

	_, err = ReadBalancesCSV(strings.NewReader("address,amount\nA,1\n"))
	assert.Error(t, err)

	_, err = ReadBalancesCSV(strings.NewReader("balance\n-1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadBalancesCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestDriverCache(t *testing.T) {
	gen, err := process.NewGenerator(process.DefaultDriversSpec())
	require.NoError(t, err)

	c := NewDriverCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	a, err := c.Generate(gen, 30, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	b, err := c.Generate(gen, 30, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, c.Len())

	_, err = c.Generate(gen, 30, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	now = now.Add(2 * time.Minute)
	key, err := CacheKey(gen.Spec(), 30, 7)
	require.NoError(t, err)
	_, ok := c.Get(key)
	assert.False(t, ok)
	c.Prune()
	assert.Equal(t, 0, c.Len())
}

func TestNilDriverCacheGeneratesDirectly(t *testing.T) {
	gen, err := process.NewGenerator(process.DefaultDriversSpec())
	require.NoError(t, err)

	c := NewDriverCache(0)
	assert.Nil(t, c)
	v, err := c.Generate(gen, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Len())
	assert.Equal(t, 0, c.Len())
}

func TestCacheKeyDependsOnInputs(t *testing.T) {
	spec := process.DefaultDriversSpec()
	k1, err := CacheKey(spec, 30, 1)
	require.NoError(t, err)
	k2, err := CacheKey(spec, 31, 1)
	require.NoError(t, err)
	spec.Price.Initial = process.F(1)
	k3, err := CacheKey(spec, 30, 1)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)
}

func TestDriverClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(driversDoc))
		case "/limited":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewDriverClient("secret", zerolog.Nop())
	ctx := context.Background()

	v, err := OpenDrivers(ctx, c, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	_, err = c.Fetch(ctx, srv.URL+"/limited")
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", remote.Code)
	assert.Equal(t, "30", remote.RetryAfter)

	_, err = c.Fetch(ctx, srv.URL+"/missing")
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusNotFound, remote.StatusCode)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/d.json"))
	assert.False(t, IsURL("drivers/d.json"))
}
