package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestStorage_PutAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(tmpDir)
	ctx := context.Background()

	data := testData{ID: "123", Name: "test", Value: 42}
	require.NoError(t, s.Put(ctx, []string{"items", "item1"}, data))

	_, err := os.Stat(filepath.Join(tmpDir, "items", "item1.json"))
	require.NoError(t, err, "file was not created")

	var retrieved testData
	require.NoError(t, s.Get(ctx, []string{"items", "item1"}, &retrieved))
	assert.Equal(t, data, retrieved)
}

func TestStorage_EscapedKeys(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	key := "file:///home/dev/project.ai-code-companion-history"
	require.NoError(t, s.Put(ctx, []string{"state", key}, testData{ID: "ws"}))

	var retrieved testData
	require.NoError(t, s.Get(ctx, []string{"state", key}, &retrieved))
	assert.Equal(t, "ws", retrieved.ID)

	keys, err := s.List(ctx, []string{"state"})
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestStorage_GetNotFound(t *testing.T) {
	s := New(t.TempDir())

	var data testData
	err := s.Get(context.Background(), []string{"nonexistent", "item"}, &data)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Delete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"items", "toDelete"}, testData{ID: "1"}))
	require.NoError(t, s.Delete(ctx, []string{"items", "toDelete"}))

	var retrieved testData
	assert.ErrorIs(t, s.Get(ctx, []string{"items", "toDelete"}, &retrieved), ErrNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, s.Delete(ctx, []string{"items", "toDelete"}))
}

func TestStorage_ListEmpty(t *testing.T) {
	s := New(t.TempDir())

	items, err := s.List(context.Background(), []string{"nonexistent"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStorage_Exists(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	assert.False(t, s.Exists(ctx, []string{"items", "test"}))
	require.NoError(t, s.Put(ctx, []string{"items", "test"}, testData{ID: "test"}))
	assert.True(t, s.Exists(ctx, []string{"items", "test"}))
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			data := testData{ID: "concurrent", Name: "test", Value: val}
			if err := s.Put(ctx, []string{"items", "concurrent"}, data); err != nil {
				t.Errorf("Concurrent Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var retrieved testData
	require.NoError(t, s.Get(ctx, []string{"items", "concurrent"}, &retrieved))
	assert.Equal(t, "concurrent", retrieved.ID)
}

func TestStorage_AtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(tmpDir)

	require.NoError(t, s.Put(context.Background(), []string{"items", "atomic"}, testData{ID: "atomic"}))

	_, err := os.Stat(filepath.Join(tmpDir, "items", "atomic.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should not exist after successful write")
}

func TestFileLock_LockContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "held")

	holder := NewFileLock(path)
	require.True(t, holder.TryLock())
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	waiter := NewFileLock(path)
	err := waiter.LockContext(ctx)
	assert.Error(t, err)
}

func TestFileLock_LockContextAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "released")

	lock := NewFileLock(path)
	require.True(t, lock.TryLock())

	go func() {
		time.Sleep(20 * time.Millisecond)
		lock.Unlock()
	}()

	require.NoError(t, lock.LockContext(context.Background()))
	assert.NoError(t, lock.Unlock())
}
