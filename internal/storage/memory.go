package storage

import (
	"sort"
	"strings"
)

// MemoryDB is a map-backed DB for tests and tools that don't need
// persistence; the orphan pool tests run on it. Keys and values are
// copied on the way in and out so callers can't alias the store.
type MemoryDB struct {
	entries map[string][]byte
}

// NewMemory creates an empty in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{entries: make(map[string][]byte)}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	v, ok := m.entries[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a key-value pair, copying the value.
func (m *MemoryDB) Put(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.entries[string(key)] = v
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (m *MemoryDB) Delete(key []byte) error {
	delete(m.entries, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	_, ok := m.entries[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix. Keys are
// visited in lexicographic order so iteration-dependent callers behave
// the same here as on Badger's sorted iterator.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m.entries[k]
		val := make([]byte, len(v))
		copy(val, v)
		if err := fn([]byte(k), val); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the store lives and dies with the process.
func (m *MemoryDB) Close() error {
	return nil
}
