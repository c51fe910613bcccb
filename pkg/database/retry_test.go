package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	busy := []error{
		errors.New("database is locked"),
		errors.New("database table is locked"),
		errors.New("SQLITE_BUSY"),
		errors.New("SQLITE_LOCKED"),
		errors.New("busy during commit (5)"),
		errors.New("table locked (6)"),
	}
	for _, err := range busy {
		assert.True(t, isBusyError(err), err.Error())
	}

	notBusy := []error{
		nil,
		errors.New("connection refused"),
		errors.New("UNIQUE constraint failed: books.openlibrary_id"),
	}
	for _, err := range notBusy {
		assert.False(t, isBusyError(err))
	}
}

func TestRetryBusy(t *testing.T) {
	t.Parallel()

	t.Run("no retry when the first attempt works", func(tt *testing.T) {
		attempts := 0
		err := retryBusy(context.Background(), 5, func() error {
			attempts++
			return nil
		})
		require.NoError(tt, err)
		assert.Equal(tt, 1, attempts)
	})

	t.Run("contention clears after a couple of attempts", func(tt *testing.T) {
		attempts := 0
		err := retryBusy(context.Background(), 5, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(tt, err)
		assert.Equal(tt, 3, attempts)
	})

	t.Run("other errors are not retried", func(tt *testing.T) {
		attempts := 0
		err := retryBusy(context.Background(), 5, func() error {
			attempts++
			return errors.New("UNIQUE constraint failed")
		})
		require.Error(tt, err)
		assert.Equal(tt, 1, attempts)
	})

	t.Run("gives up after the retry budget", func(tt *testing.T) {
		attempts := 0
		err := retryBusy(context.Background(), 3, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(tt, err)
		// 1 initial attempt + 3 retries.
		assert.Equal(tt, 4, attempts)
		assert.Contains(tt, err.Error(), "database is locked")
	})

	t.Run("a cancelled context stops the backoff", func(tt *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := retryBusy(ctx, 10, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.ErrorIs(tt, err, context.Canceled)
		assert.GreaterOrEqual(tt, attempts, 1)
		assert.Less(tt, attempts, 10)
	})

	t.Run("zero retries means a single attempt", func(tt *testing.T) {
		attempts := 0
		err := retryBusy(context.Background(), 0, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(tt, err)
		assert.Equal(tt, 1, attempts)
	})
}
