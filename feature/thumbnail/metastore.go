package thumbnail

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is the durable record kept per cache key.
type Entry struct {
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ByteSize       int64     `json:"byte_size"`
	AccessCount    int64     `json:"access_count"`
}

// MetaStore is the cache metadata store: a single in-process map, all
// mutations serialized, persisted with an atomic rename swap so a crash
// mid-write cannot tear the file. It survives restarts via Load.
type MetaStore struct {
	mu           sync.Mutex
	path         string
	entries      map[string]Entry
	lastActivity time.Time
}

// NewMetaStore creates an empty store persisting to path.
func NewMetaStore(path string) *MetaStore {
	return &MetaStore{
		path:    path,
		entries: make(map[string]Entry),
	}
}

// Load replaces the in-memory state with the persisted file. A missing file
// leaves the store empty. Entries whose backing files vanished are pruned
// lazily on access and during sweeps, not here.
func (s *MetaStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache metadata: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode cache metadata: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Persist writes the store to disk atomically.
func (s *MetaStore) Persist() error {
	s.mu.Lock()
	data, err := json.Marshal(s.entries)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode cache metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to swap cache metadata: %w", err)
	}
	return nil
}

// Record registers a freshly generated entry.
func (s *MetaStore) Record(key string, size int64) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		CreatedAt:      now,
		LastAccessedAt: now,
		ByteSize:       size,
		AccessCount:    1,
	}
	s.lastActivity = now
}

// Touch updates the access fields of an existing entry and reports whether it
// was present. Called on every cache hit before serving.
func (s *MetaStore) Touch(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.LastAccessedAt = time.Now()
	e.AccessCount++
	s.entries[key] = e
	s.lastActivity = e.LastAccessedAt
	return true
}

// Has reports whether the key is recorded, without touching access fields.
func (s *MetaStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Remove drops entries.
func (s *MetaStore) Remove(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
}

// TotalSize returns the recorded on-disk cache size in bytes.
func (s *MetaStore) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.entries {
		total += e.ByteSize
	}
	return total
}

// Len returns the number of entries.
func (s *MetaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the current state.
func (s *MetaStore) Entries() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// LastActivity returns the time of the most recent hit or generation, the
// idleness signal for pregeneration.
func (s *MetaStore) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
