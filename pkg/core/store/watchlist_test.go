package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	got, err := NormalizeTicker("  msft ")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got)

	_, err = NormalizeTicker("   ")
	assert.ErrorIs(t, err, ErrEmptyTicker)
}

func TestMemoryWatchlist(t *testing.T) {
	ctx := context.Background()
	w := NewMemoryWatchlist()
	require.NoError(t, w.Init(ctx))

	require.NoError(t, w.Add(ctx, "msft"))
	require.NoError(t, w.Add(ctx, "MSFT "))
	require.NoError(t, w.Add(ctx, "aapl"))

	list, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, list)

	require.NoError(t, w.Remove(ctx, "msft"))
	require.NoError(t, w.Remove(ctx, "NOTTHERE"))
	list, err = w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)

	assert.ErrorIs(t, w.Add(ctx, ""), ErrEmptyTicker)
	assert.ErrorIs(t, w.Remove(ctx, " "), ErrEmptyTicker)
	assert.NoError(t, w.Close())
}

func TestMemoryWatchlist_EmptyListIsNotNil(t *testing.T) {
	list, err := NewMemoryWatchlist().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMemoryWatchlist_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	w := NewMemoryWatchlist()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Add(ctx, "ibm")
		}()
	}
	wg.Wait()

	list, err := w.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM"}, list)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	w, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryWatchlist{}, w)

	w, err = Open(ctx, Config{Backend: "Memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryWatchlist{}, w)

	_, err = Open(ctx, Config{Backend: "sqlite"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Backend: BackendPostgres})
	assert.Error(t, err, "postgres without a URL")

	_, err = Open(ctx, Config{Backend: BackendRedis})
	assert.Error(t, err, "redis without an address")
}
