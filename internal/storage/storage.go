package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 250 * time.Millisecond

	// defaultCacheSize is the block cache size. Artifacts are read once per run.
	defaultCacheSize = 8 << 20
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Options tunes a Storage.
type Options struct {
	SyncInterval time.Duration // SyncInterval is the WAL sync period; zero uses the default
	ReadOnly     bool          // ReadOnly opens the database without write access
}

// Storage is a key-value store for benchmark artifacts backed by Pebble.
// Writes are buffered (NoSync) and a background goroutine syncs the WAL
// periodically; Close performs a final sync.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	readOnly bool          // readOnly disables the sync loop
	stopSync chan struct{} // stopSync signals the sync goroutine to stop

	mu     sync.RWMutex // mu guards closed against concurrent Close
	closed bool         // closed is set once Close has run
	wg     sync.WaitGroup
}

// New opens or creates a store at path with default options.
func New(path string) (*Storage, error) {
	return Open(path, Options{})
}

// Open opens or creates a store at path.
func Open(path string, o Options) (*Storage, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(defaultCacheSize),
		MemTableSize:                16 << 20, // artifacts of large batches run to several MB
		MemTableStopWritesThreshold: 2,
		ReadOnly:                    o.ReadOnly,
	}
	defer opts.Cache.Unref()

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	s := &Storage{
		db:       db,
		readOnly: o.ReadOnly,
		stopSync: make(chan struct{}),
	}

	if !o.ReadOnly {
		interval := o.SyncInterval
		if interval <= 0 {
			interval = defaultSyncInterval
		}
		s.startSyncLoop(interval)
	}

	return s, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q:\n%w", key, err)
	}
	defer closer.Close()

	// value is only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Set stores a key-value pair.
func (s *Storage) Set(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.db.Set(key, value, pebble.NoSync); err != nil {
		return fmt.Errorf("set %q:\n%w", key, err)
	}

	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Storage) Delete(key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.db.Delete(key, pebble.NoSync); err != nil {
		return fmt.Errorf("delete %q:\n%w", key, err)
	}

	return nil
}

// DeletePrefix removes every key starting with prefix in one range tombstone.
func (s *Storage) DeletePrefix(prefix []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	upper := prefixUpperBound(prefix)
	if upper == nil {
		return fmt.Errorf("delete prefix %q: unbounded range", prefix)
	}

	if err := s.db.DeleteRange(prefix, upper, pebble.NoSync); err != nil {
		return fmt.Errorf("delete prefix %q:\n%w", prefix, err)
	}

	return nil
}

// IteratePrefix calls fn for each key-value pair with the given prefix,
// in lexicographic key order. Iteration stops at the first error from fn.
// Key and value are only valid for the duration of the call.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("new iterator:\n%w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return fmt.Errorf("read %q:\n%w", iter.Key(), err)
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Returns nil if prefix is all 0xFF (unbounded).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// Close stops the sync goroutine, syncs the WAL and closes the database.
// Calling Close twice is a no-op.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	close(s.stopSync)
	s.wg.Wait()

	if !s.readOnly {
		if err := s.sync(); err != nil {
			s.db.Close()
			return fmt.Errorf("final sync:\n%w", err)
		}
	}

	return s.db.Close()
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop(interval time.Duration) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Storage) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
