package thumbnail

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetaStore_RecordTouchRemove(t *testing.T) {
	s := NewMetaStore(filepath.Join(t.TempDir(), "meta.json"))

	assert.False(t, s.Touch("missing"))

	s.Record("k1", 100)
	s.Record("k2", 250)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(350), s.TotalSize())

	assert.True(t, s.Touch("k1"))
	entries := s.Entries()
	assert.Equal(t, int64(2), entries["k1"].AccessCount)
	assert.Equal(t, int64(1), entries["k2"].AccessCount)

	s.Remove("k1", "k2")
	assert.Zero(t, s.Len())
	assert.Zero(t, s.TotalSize())
}

func TestMetaStore_PersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "meta.json")

	s := NewMetaStore(path)
	s.Record("k1", 123)
	s.Record("k2", 456)
	assert.NoError(t, s.Persist())

	restored := NewMetaStore(path)
	assert.NoError(t, restored.Load())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, int64(579), restored.TotalSize())
	assert.Equal(t, int64(123), restored.Entries()["k1"].ByteSize)
}

func TestMetaStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := NewMetaStore(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, s.Load())
	assert.Zero(t, s.Len())
}

func TestMetaStore_PersistLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s := NewMetaStore(filepath.Join(dir, "meta.json"))
	s.Record("k1", 1)
	assert.NoError(t, s.Persist())

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "meta.json", entries[0].Name())
}

func TestMetaStore_LastActivity(t *testing.T) {
	s := NewMetaStore(filepath.Join(t.TempDir(), "meta.json"))
	assert.True(t, s.LastActivity().IsZero())

	s.Record("k1", 1)
	first := s.LastActivity()
	assert.False(t, first.IsZero())

	time.Sleep(5 * time.Millisecond)
	s.Touch("k1")
	assert.True(t, s.LastActivity().After(first))
}
