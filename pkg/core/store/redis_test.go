package store

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisWatchlist(t *testing.T) {
	db, mock := redismock.NewClientMock()
	w := NewRedisWatchlistWithClient(db, "")
	ctx := context.Background()

	t.Run("add normalizes ticker", func(t *testing.T) {
		mock.ExpectSAdd(DefaultRedisKey, "MSFT").SetVal(1)
		require.NoError(t, w.Add(ctx, " msft"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("add of existing member is not an error", func(t *testing.T) {
		mock.ExpectSAdd(DefaultRedisKey, "MSFT").SetVal(0)
		require.NoError(t, w.Add(ctx, "MSFT"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list is sorted", func(t *testing.T) {
		mock.ExpectSMembers(DefaultRedisKey).SetVal([]string{"MSFT", "AAPL", "GOOG"})
		list, err := w.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remove absent member", func(t *testing.T) {
		mock.ExpectSRem(DefaultRedisKey, "TSLA").SetVal(0)
		require.NoError(t, w.Remove(ctx, "tsla"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ticker never reaches redis", func(t *testing.T) {
		assert.ErrorIs(t, w.Add(ctx, "  "), ErrEmptyTicker)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis errors are wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		mock.ExpectSMembers(DefaultRedisKey).SetErr(boom)
		_, err := w.List(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisWatchlist_CustomKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	w := NewRedisWatchlistWithClient(db, "tests:watchlist")

	mock.ExpectSAdd("tests:watchlist", "IBM").SetVal(1)
	require.NoError(t, w.Add(context.Background(), "ibm"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
