package cache

import (
	"fmt"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/logger"
)

// ShapeError reports a decoded batch whose shape differs from its key.
type ShapeError struct {
	Field    string // Field is the mismatched property
	Expected int    // Expected is the value the key demands
	Actual   int    // Actual is the decoded value
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("cached batch shape mismatch: %s is %d, want %d", e.Field, e.Actual, e.Expected)
}

// Manager maps cache keys to artifacts in a Store. Anything wrong with a
// stored artifact is a miss: the artifact is deleted and the caller
// regenerates.
type Manager struct {
	store Store  // store holds the artifacts
	codec *codec // codec frames and compresses batch bytes
}

// NewManager creates a manager over store. The manager owns store and
// closes it in Close.
func NewManager(store Store) (*Manager, error) {
	c, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("create artifact codec:\n%w", err)
	}

	return &Manager{store: store, codec: c}, nil
}

// Lookup returns the batch bytes stored under key and the seed they were
// generated from.
func (m *Manager) Lookup(key Key) ([]byte, uint64, bool) {
	name := key.String()

	data, err := m.store.Get(name)
	if err != nil {
		logger.Warn("cache read failed, treating as miss", "artifact", name, "error", err)
		return nil, 0, false
	}
	if data == nil {
		return nil, 0, false
	}

	batch, seed, err := m.codec.decode(key, data)
	if err != nil {
		m.evict(name, &SerializationError{Op: "decode", Key: key, Err: err})
		return nil, 0, false
	}

	return batch, seed, true
}

// Store writes batch bytes generated from seed under key, replacing any
// existing artifact.
func (m *Manager) Store(key Key, seed uint64, batch []byte) error {
	data := m.codec.encode(key, seed, batch)

	if err := m.store.Put(key.String(), data); err != nil {
		return fmt.Errorf("store artifact %s:\n%w", key, err)
	}

	logger.Debug("cache artifact written",
		"artifact", key.String(),
		"seed", seed,
		"raw_bytes", len(batch),
		"stored_bytes", len(data),
	)

	return nil
}

// Load returns the batch cached under key if it decodes, validates and
// matches the key's shape, together with the seed it was generated from.
func (m *Manager) Load(key Key) (*aggregation.Batch, uint64, bool) {
	raw, seed, ok := m.Lookup(key)
	if !ok {
		return nil, 0, false
	}

	batch, err := aggregation.Decode(raw)
	if err != nil {
		m.evict(key.String(), &SerializationError{Op: "decode", Key: key, Err: err})
		return nil, 0, false
	}

	if err := checkShape(key, batch); err != nil {
		m.evict(key.String(), err)
		return nil, 0, false
	}

	return batch, seed, true
}

// Save encodes batch and stores it under key, recording the seed it was
// generated from.
func (m *Manager) Save(key Key, seed uint64, batch *aggregation.Batch) error {
	if err := checkShape(key, batch); err != nil {
		return fmt.Errorf("save %s:\n%w", key, err)
	}

	return m.Store(key, seed, aggregation.Encode(batch))
}

// List returns the keys of all stored artifacts. Names that do not parse
// as keys are skipped.
func (m *Manager) List() ([]Key, error) {
	names, err := m.store.List()
	if err != nil {
		return nil, err
	}

	keys := make([]Key, 0, len(names))
	for _, name := range names {
		k, err := ParseKey(name)
		if err != nil {
			logger.Debug("skipping foreign cache entry", "name", name)
			continue
		}
		keys = append(keys, k)
	}

	return keys, nil
}

// Close releases the codec and the store.
func (m *Manager) Close() error {
	m.codec.close()
	return m.store.Close()
}

// evict logs why an artifact is stale and deletes it.
func (m *Manager) evict(name string, reason error) {
	logger.Warn("discarding stale cache artifact", "artifact", name, "reason", reason)

	if err := m.store.Delete(name); err != nil {
		logger.Warn("failed to delete stale cache artifact", "artifact", name, "error", err)
	}
}

// checkShape verifies count, mode and path length against key.
func checkShape(key Key, batch *aggregation.Batch) error {
	if batch.Len() != key.BatchSize {
		return &ShapeError{Field: "item count", Expected: key.BatchSize, Actual: batch.Len()}
	}

	if batch.Mode() != key.Mode {
		return &ShapeError{Field: "mode", Expected: int(key.Mode), Actual: int(batch.Mode())}
	}

	for i := 0; i < batch.Len(); i++ {
		if n := batch.PathLen(i); n != key.LogLifetime {
			return &ShapeError{Field: fmt.Sprintf("item %d path length", i), Expected: key.LogLifetime, Actual: n}
		}
	}

	return nil
}

// clearer is implemented by stores that can drop every artifact at once.
type clearer interface {
	Clear() error
}

// Purge removes every artifact and returns how many there were.
func (m *Manager) Purge() (int, error) {
	names, err := m.store.List()
	if err != nil {
		return 0, err
	}

	if c, ok := m.store.(clearer); ok {
		return len(names), c.Clear()
	}

	for _, name := range names {
		if err := m.store.Delete(name); err != nil {
			return 0, err
		}
	}

	return len(names), nil
}
