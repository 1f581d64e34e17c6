package concurrency_test

import (
	"testing"
	"time"

	"dinohash/pkg/concurrency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	blocked  = 50 * time.Millisecond
	released = 2 * time.Second
)

// lockAsync takes the lock in a new goroutine and closes the returned
// channel once it holds it.
func lockAsync(lm *concurrency.ResourceLockManager, r concurrency.Resource, lType concurrency.LockType) chan struct{} {
	acquired := make(chan struct{})
	go func() {
		if err := lm.Lock(r, lType); err == nil {
			close(acquired)
		}
	}()
	return acquired
}

func TestResourceLocks(t *testing.T) {
	t.Run("ReadersShare", testReadersShare)
	t.Run("WriterExcludesReaders", testWriterExcludesReaders)
	t.Run("ReaderExcludesWriter", testReaderExcludesWriter)
	t.Run("TablesIndependent", testTablesIndependent)
	t.Run("UnknownResource", testUnknownResource)
	t.Run("BadLockType", testBadLockType)
	t.Run("WithLock", testWithLock)
}

func testReadersShare(t *testing.T) {
	t.Parallel()
	lm := concurrency.NewResourceLockManager()
	r := concurrency.NewResource("t")
	require.NoError(t, lm.Lock(r, concurrency.R_LOCK))
	select {
	case <-lockAsync(lm, r, concurrency.R_LOCK):
	case <-time.After(released):
		t.Fatal("second reader blocked")
	}
	require.NoError(t, lm.Unlock(r, concurrency.R_LOCK))
	require.NoError(t, lm.Unlock(r, concurrency.R_LOCK))
}

func testWriterExcludesReaders(t *testing.T) {
	t.Parallel()
	lm := concurrency.NewResourceLockManager()
	r := concurrency.NewResource("t")
	require.NoError(t, lm.Lock(r, concurrency.W_LOCK))
	acquired := lockAsync(lm, r, concurrency.R_LOCK)
	select {
	case <-acquired:
		t.Fatal("reader acquired a write-locked table")
	case <-time.After(blocked):
	}
	require.NoError(t, lm.Unlock(r, concurrency.W_LOCK))
	select {
	case <-acquired:
	case <-time.After(released):
		t.Fatal("reader never acquired the table")
	}
}

func testReaderExcludesWriter(t *testing.T) {
	t.Parallel()
	lm := concurrency.NewResourceLockManager()
	r := concurrency.NewResource("t")
	require.NoError(t, lm.Lock(r, concurrency.R_LOCK))
	acquired := lockAsync(lm, r, concurrency.W_LOCK)
	select {
	case <-acquired:
		t.Fatal("writer acquired a read-locked table")
	case <-time.After(blocked):
	}
	require.NoError(t, lm.Unlock(r, concurrency.R_LOCK))
	select {
	case <-acquired:
	case <-time.After(released):
		t.Fatal("writer never acquired the table")
	}
}

func testTablesIndependent(t *testing.T) {
	t.Parallel()
	lm := concurrency.NewResourceLockManager()
	require.NoError(t, lm.Lock(concurrency.NewResource("a"), concurrency.W_LOCK))
	select {
	case <-lockAsync(lm, concurrency.NewResource("b"), concurrency.W_LOCK):
	case <-time.After(released):
		t.Fatal("lock on a blocked b")
	}
}

func testUnknownResource(t *testing.T) {
	lm := concurrency.NewResourceLockManager()
	err := lm.Unlock(concurrency.NewResource("t"), concurrency.R_LOCK)
	assert.ErrorIs(t, err, concurrency.ErrUnknownResource)
}

func testBadLockType(t *testing.T) {
	lm := concurrency.NewResourceLockManager()
	r := concurrency.NewResource("t")
	assert.ErrorIs(t, lm.Lock(r, concurrency.LockType(7)), concurrency.ErrBadLockType)
	assert.ErrorIs(t, lm.Unlock(r, concurrency.LockType(7)), concurrency.ErrBadLockType)
	assert.Equal(t, "LockType(7)", concurrency.LockType(7).String())
	assert.Equal(t, "write", concurrency.W_LOCK.String())
}

func testWithLock(t *testing.T) {
	lm := concurrency.NewResourceLockManager()
	r := concurrency.NewResource("t")
	ran := false
	err := lm.WithLock(r, concurrency.W_LOCK, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	// Released on return, so a writer gets it straight away.
	select {
	case <-lockAsync(lm, r, concurrency.W_LOCK):
	case <-time.After(released):
		t.Fatal("WithLock did not release the table")
	}
}
