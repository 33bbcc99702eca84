package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/strategy"
	"SigAgg/internal/types"
	"SigAgg/internal/xmss"

	flatbuffers "github.com/google/flatbuffers/go"
)

// testBatch builds a MultiKey batch of n items with paths of length h.
func testBatch(t *testing.T, n, h int) *aggregation.Batch {
	t.Helper()

	items := make([]aggregation.VerificationItem, n)
	for i := range items {
		pk := &xmss.PublicKey{}
		pk.Root[0] = byte(i)

		items[i] = aggregation.VerificationItem{
			Epoch:     uint32(i),
			Signature: xmss.Signature{Path: make([]xmss.Digest, h), Hashes: make([]xmss.Digest, xmss.NumChains)},
			PublicKey: pk,
		}
		items[i].Message[0] = byte(i)
		items[i].Signature.Path[0][0] = byte(i + 1)
	}

	b, err := aggregation.Aggregate(items, aggregation.MultiKey, nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	return b
}

// newTestManager returns a file-backed manager and its store.
func newTestManager(t *testing.T) (*Manager, *FileStore) {
	t.Helper()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	return m, store
}

// storeFactories opens each backend in a fresh directory.
var storeFactories = map[string]func(t *testing.T) Store{
	"file": func(t *testing.T) Store {
		s, err := NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("file store: %v", err)
		}
		return s
	},
	"pebble": func(t *testing.T) Store {
		s, err := NewPebbleStore(filepath.Join(t.TempDir(), "db"))
		if err != nil {
			t.Fatalf("pebble store: %v", err)
		}
		return s
	},
}

func TestKeyString(t *testing.T) {
	realKey := Key{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 4, LogLifetime: 18}
	phonyKey := realKey
	phonyKey.Strategy = strategy.Phony

	if got := phonyKey.String(); got != "benchmark_data_phony_multi_n4_h18" {
		t.Errorf("got %q", got)
	}

	if realKey.String() == phonyKey.String() {
		t.Error("real and phony keys share a name")
	}

	parsed, err := ParseKey(phonyKey.String())
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}

	if parsed != phonyKey {
		t.Errorf("got %+v, want %+v", parsed, phonyKey)
	}
}

func TestParseKeyRejects(t *testing.T) {
	for _, name := range []string{
		"",
		"benchmark_data_",
		"other_real_multi_n4_h18",
		"benchmark_data_fake_multi_n4_h18",
		"benchmark_data_real_multi_4_h18",
		"benchmark_data_real_multi_n04_h18",
	} {
		if _, err := ParseKey(name); err == nil {
			t.Errorf("ParseKey(%q) succeeded", name)
		}
	}
}

func TestStores(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			got, err := s.Get("missing")
			if err != nil || got != nil {
				t.Fatalf("Get(missing) = %v, %v", got, err)
			}

			if err := s.Put("b", []byte("two")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			if err := s.Put("a", []byte("one")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			if err := s.Put("a", []byte("uno")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}

			got, err = s.Get("a")
			if err != nil || !bytes.Equal(got, []byte("uno")) {
				t.Errorf("Get(a) = %q, %v", got, err)
			}

			names, err := s.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}

			if len(names) != 2 || names[0] != "a" || names[1] != "b" {
				t.Errorf("got names %v, want [a b]", names)
			}

			if err := s.Delete("a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			if err := s.Delete("a"); err != nil {
				t.Errorf("second Delete: %v", err)
			}

			if got, _ := s.Get("a"); got != nil {
				t.Error("artifact survived Delete")
			}
		})
	}
}

func TestFileStoreSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "x.123.tmp"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(names) != 0 {
		t.Errorf("temp file listed: %v", names)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			m, err := NewManager(open(t))
			if err != nil {
				t.Fatalf("manager: %v", err)
			}
			defer m.Close()

			key := Key{Strategy: strategy.Phony, Mode: aggregation.MultiKey, BatchSize: 4, LogLifetime: 18}

			if _, _, ok := m.Load(key); ok {
				t.Fatal("empty cache reported a hit")
			}

			want := testBatch(t, 4, 18)
			if err := m.Save(key, 7, want); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, seed, ok := m.Load(key)
			if !ok {
				t.Fatal("saved batch missed")
			}

			if !bytes.Equal(aggregation.Encode(got), aggregation.Encode(want)) {
				t.Error("loaded batch differs from saved batch")
			}

			if seed != 7 {
				t.Errorf("loaded seed = %d, want 7", seed)
			}

			keys, err := m.List()
			if err != nil || len(keys) != 1 || keys[0] != key {
				t.Errorf("List() = %v, %v", keys, err)
			}
		})
	}
}

func TestStrategiesNotInterchangeable(t *testing.T) {
	m, store := newTestManager(t)

	phonyKey := Key{Strategy: strategy.Phony, Mode: aggregation.MultiKey, BatchSize: 4, LogLifetime: 18}
	realKey := phonyKey
	realKey.Strategy = strategy.Real

	if err := m.Save(phonyKey, 7, testBatch(t, 4, 18)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, _, ok := m.Load(realKey); ok {
		t.Fatal("real lookup hit a phony artifact")
	}

	// Even a phony artifact renamed to the real name must not load.
	data, err := os.ReadFile(store.Path(phonyKey.String()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := os.WriteFile(store.Path(realKey.String()), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, ok := m.Load(realKey); ok {
		t.Fatal("renamed phony artifact loaded as real")
	}

	if _, err := os.Stat(store.Path(realKey.String())); !os.IsNotExist(err) {
		t.Error("mislabelled artifact was not evicted")
	}

	if _, _, ok := m.Load(phonyKey); !ok {
		t.Error("original phony artifact lost")
	}
}

func TestShapeMismatchEvicts(t *testing.T) {
	m, store := newTestManager(t)

	key := Key{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 4, LogLifetime: 18}

	// Three items stored under a four-item key.
	if err := m.Store(key, 7, aggregation.Encode(testBatch(t, 3, 18))); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, _, ok := m.Load(key); ok {
		t.Fatal("short batch loaded")
	}

	if got, _ := store.Get(key.String()); got != nil {
		t.Error("stale artifact not deleted")
	}

	// Wrong path length.
	if err := m.Store(key, 7, aggregation.Encode(testBatch(t, 4, 10))); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, _, ok := m.Load(key); ok {
		t.Fatal("batch with short paths loaded")
	}
}

func TestSaveRejectsWrongShape(t *testing.T) {
	m, _ := newTestManager(t)

	key := Key{Strategy: strategy.Real, Mode: aggregation.SingleKey, BatchSize: 4, LogLifetime: 18}

	var shape *ShapeError
	if err := m.Save(key, 7, testBatch(t, 4, 18)); !errors.As(err, &shape) {
		t.Errorf("got %v, want ShapeError for mode", err)
	}
}

func TestCorruptArtifactEvicts(t *testing.T) {
	m, store := newTestManager(t)

	key := Key{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 2, LogLifetime: 4}

	if err := store.Put(key.String(), []byte("not an artifact at all")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, _, ok := m.Load(key); ok {
		t.Fatal("garbage loaded")
	}

	if got, _ := store.Get(key.String()); got != nil {
		t.Error("corrupt artifact not deleted")
	}
}

func TestCodecChecksum(t *testing.T) {
	c, err := newCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	defer c.close()

	key := Key{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 1, LogLifetime: 4}
	raw := []byte("batch bytes")

	got, seed, err := c.decode(key, c.encode(key, 42, raw))
	if err != nil || !bytes.Equal(got, raw) || seed != 42 {
		t.Fatalf("decode = %q, %d, %v", got, seed, err)
	}

	// Valid frame, valid payload, wrong checksum.
	builder := flatbuffers.NewBuilder(256)
	sumOffset := builder.CreateByteVector(make([]byte, 32))
	payloadOffset := builder.CreateByteVector(c.enc.EncodeAll(raw, nil))
	types.ArtifactStart(builder)
	types.ArtifactAddVersion(builder, artifactVersion)
	types.ArtifactAddStrategy(builder, byte(key.Strategy))
	types.ArtifactAddMode(builder, byte(key.Mode))
	types.ArtifactAddBatchSize(builder, uint32(key.BatchSize))
	types.ArtifactAddLogLifetime(builder, byte(key.LogLifetime))
	types.ArtifactAddChecksum(builder, sumOffset)
	types.ArtifactAddPayload(builder, payloadOffset)
	builder.Finish(types.ArtifactEnd(builder))

	if _, _, err := c.decode(key, builder.FinishedBytes()); !errors.Is(err, ErrChecksum) {
		t.Errorf("got %v, want ErrChecksum", err)
	}

	other := key
	other.LogLifetime = 5
	if _, _, err := c.decode(other, c.encode(key, 42, raw)); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("got %v, want ErrKeyMismatch", err)
	}
}

func TestStoreReplacesSeed(t *testing.T) {
	m, _ := newTestManager(t)

	key := Key{Strategy: strategy.Phony, Mode: aggregation.MultiKey, BatchSize: 2, LogLifetime: 4}

	for _, seed := range []uint64{1, 2} {
		if err := m.Save(key, seed, testBatch(t, 2, 4)); err != nil {
			t.Fatalf("Save seed %d: %v", seed, err)
		}

		if _, got, ok := m.Load(key); !ok || got != seed {
			t.Errorf("Load() seed = %d, %v, want %d", got, ok, seed)
		}
	}
}

func TestOldArtifactVersionEvicts(t *testing.T) {
	m, store := newTestManager(t)

	key := Key{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 2, LogLifetime: 4}
	raw := aggregation.Encode(testBatch(t, 2, 4))
	sum := checksum(raw)

	// A version 1 artifact carries no seed.
	builder := flatbuffers.NewBuilder(256)
	sumOffset := builder.CreateByteVector(sum[:])
	payloadOffset := builder.CreateByteVector(m.codec.enc.EncodeAll(raw, nil))
	types.ArtifactStart(builder)
	types.ArtifactAddVersion(builder, 1)
	types.ArtifactAddStrategy(builder, byte(key.Strategy))
	types.ArtifactAddMode(builder, byte(key.Mode))
	types.ArtifactAddBatchSize(builder, uint32(key.BatchSize))
	types.ArtifactAddLogLifetime(builder, byte(key.LogLifetime))
	types.ArtifactAddChecksum(builder, sumOffset)
	types.ArtifactAddPayload(builder, payloadOffset)
	builder.Finish(types.ArtifactEnd(builder))

	if err := store.Put(key.String(), builder.FinishedBytes()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, _, ok := m.Load(key); ok {
		t.Fatal("version 1 artifact loaded")
	}

	if got, _ := store.Get(key.String()); got != nil {
		t.Error("old artifact not deleted")
	}
}

func TestPurge(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			m, err := NewManager(open(t))
			if err != nil {
				t.Fatalf("manager: %v", err)
			}
			defer m.Close()

			for _, n := range []int{2, 3} {
				key := Key{Strategy: strategy.Phony, Mode: aggregation.MultiKey, BatchSize: n, LogLifetime: 4}
				if err := m.Save(key, 7, testBatch(t, n, 4)); err != nil {
					t.Fatalf("Save: %v", err)
				}
			}

			removed, err := m.Purge()
			if err != nil || removed != 2 {
				t.Fatalf("Purge() = %d, %v", removed, err)
			}

			if keys, _ := m.List(); len(keys) != 0 {
				t.Errorf("artifacts left after Purge: %v", keys)
			}
		})
	}
}
