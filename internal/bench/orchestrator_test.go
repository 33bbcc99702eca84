package bench

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/cache"
	"SigAgg/internal/metrics"
	"SigAgg/internal/prover"
	"SigAgg/internal/strategy"
	"SigAgg/internal/xmss"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// seed returns a pointer to s.
func seed(s uint64) *uint64 {
	return &s
}

// newTestCache returns a file-backed cache manager in a temp dir.
func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()

	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	m, err := cache.NewManager(store)
	if err != nil {
		t.Fatalf("cache manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	return m
}

// newTestOrchestrator fails the test on a constructor error.
func newTestOrchestrator(t *testing.T, cfg Config, deps Deps) *Orchestrator {
	t.Helper()

	o, err := NewOrchestrator(cfg, deps)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	return o
}

// phonyConfig is the seed=42, N=4, height 18 MultiKey phony scenario.
func phonyConfig() Config {
	return Config{
		Strategy:      strategy.Phony,
		Mode:          aggregation.MultiKey,
		BatchSize:     4,
		LogLifetime:   18,
		Deterministic: true,
		Seed:          seed(42),
	}
}

// assertStates compares the recorded state path.
func assertStates(t *testing.T, got []State, want ...State) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got states %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got states %v, want %v", got, want)
		}
	}
}

func TestPhonyScenario(t *testing.T) {
	o := newTestOrchestrator(t, phonyConfig(), Deps{})

	batch, err := o.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if batch.Len() != 4 || batch.Mode() != aggregation.MultiKey {
		t.Fatalf("got %d items in %s mode", batch.Len(), batch.Mode())
	}

	type pair struct {
		key   xmss.PublicKey
		epoch uint32
	}
	seen := make(map[pair]bool)

	for i := 0; i < batch.Len(); i++ {
		it := batch.Item(i)

		if len(it.Signature.Path) != 18 {
			t.Errorf("item %d: path length %d, want 18", i, len(it.Signature.Path))
		}

		if it.Message != DeterministicMessage(i) || it.Epoch != uint32(i) {
			t.Errorf("item %d: unexpected message or epoch", i)
		}

		seen[pair{*it.PublicKey, it.Epoch}] = true

		// Fabricated paths still verify against their fabricated roots.
		if !xmss.Verify(xmss.Params{LogLifetime: 18}, it.PublicKey, it.Epoch, &it.Message, &it.Signature) {
			t.Errorf("item %d does not verify", i)
		}
	}

	if len(seen) != 4 {
		t.Errorf("got %d distinct (key, epoch) pairs, want 4", len(seen))
	}

	realKey := phonyConfig()
	realKey.Strategy = strategy.Real

	if o.Report().CacheKey.String() == realKey.CacheKey().String() {
		t.Error("phony and real artifacts share a key")
	}

	assertStates(t, o.Report().States, Idle, SelectStrategy, CacheMiss, GenerateItems, Validate, StoreCache, BatchReady)
}

func TestPhonyDeterministicAcrossWorkers(t *testing.T) {
	var encoded [][]byte

	for _, workers := range []int{1, 3, 8} {
		cfg := phonyConfig()
		cfg.BatchSize = 16
		cfg.Workers = workers

		batch, err := newTestOrchestrator(t, cfg, Deps{}).Prepare(context.Background())
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}

		encoded = append(encoded, aggregation.Encode(batch))
	}

	for i := 1; i < len(encoded); i++ {
		if !bytes.Equal(encoded[0], encoded[i]) {
			t.Errorf("batch %d differs from batch 0", i)
		}
	}
}

func TestPhonySeedsDiffer(t *testing.T) {
	a, err := newTestOrchestrator(t, phonyConfig(), Deps{}).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	cfg := phonyConfig()
	cfg.Seed = seed(43)

	b, err := newTestOrchestrator(t, cfg, Deps{}).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if a.Item(0).Signature.Path[0] == b.Item(0).Signature.Path[0] {
		t.Error("different seeds produced the same sibling")
	}
}

func TestRealRunWithProver(t *testing.T) {
	for _, mode := range []aggregation.Mode{aggregation.SingleKey, aggregation.MultiKey} {
		t.Run(mode.String(), func(t *testing.T) {
			attester, err := prover.NewAttester([]byte("bench-test"), true)
			if err != nil {
				t.Fatalf("attester: %v", err)
			}

			cfg := Config{
				Strategy:    strategy.Real,
				Mode:        mode,
				BatchSize:   6,
				LogLifetime: 8,
				Seed:        seed(7),
			}

			rep, err := newTestOrchestrator(t, cfg, Deps{Prover: attester}).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			if rep.Receipt == nil || rep.Receipt.VerifiedCount != 6 {
				t.Fatalf("unexpected receipt: %+v", rep.Receipt)
			}

			if !rep.Verified {
				t.Error("receipt did not verify")
			}

			// One real key pair signs every item.
			for i := 1; i < rep.Batch.Len(); i++ {
				if rep.Batch.KeyFor(i) != rep.Batch.KeyFor(0) {
					t.Errorf("item %d has a different key", i)
				}
			}

			assertStates(t, rep.States,
				Idle, SelectStrategy, CacheMiss, GenerateItems, Validate, StoreCache, BatchReady, HandOff)
		})
	}
}

func TestCacheHit(t *testing.T) {
	mgr := newTestCache(t)
	m := metrics.New()
	ctx := context.Background()

	first, err := newTestOrchestrator(t, phonyConfig(), Deps{Cache: mgr, Metrics: m}).Prepare(ctx)
	if err != nil {
		t.Fatalf("first Prepare: %v", err)
	}

	o := newTestOrchestrator(t, phonyConfig(), Deps{Cache: mgr, Metrics: m})

	second, err := o.Prepare(ctx)
	if err != nil {
		t.Fatalf("second Prepare: %v", err)
	}

	if !o.Report().CacheHit {
		t.Error("second run missed the cache")
	}

	assertStates(t, o.Report().States, Idle, SelectStrategy, CacheHit, BatchReady)

	if !bytes.Equal(aggregation.Encode(first), aggregation.Encode(second)) {
		t.Error("cached batch differs from generated batch")
	}

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("phony", "hit")); got != 1 {
		t.Errorf("got %v hits, want 1", got)
	}

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("phony", "miss")); got != 1 {
		t.Errorf("got %v misses, want 1", got)
	}

	if got := testutil.ToFloat64(m.ItemsGenerated.WithLabelValues("phony")); got != 4 {
		t.Errorf("got %v generated, want 4", got)
	}
}

func TestCacheHitReportsCachedSeed(t *testing.T) {
	mgr := newTestCache(t)
	ctx := context.Background()

	cfg := phonyConfig()
	cfg.Deterministic = false
	cfg.Seed = seed(1)

	first, err := newTestOrchestrator(t, cfg, Deps{Cache: mgr}).Prepare(ctx)
	if err != nil {
		t.Fatalf("seed 1 Prepare: %v", err)
	}

	cfg.Seed = seed(2)
	o := newTestOrchestrator(t, cfg, Deps{Cache: mgr})

	second, err := o.Prepare(ctx)
	if err != nil {
		t.Fatalf("seed 2 Prepare: %v", err)
	}

	if !o.Report().CacheHit {
		t.Fatal("non-deterministic run should reuse any seed")
	}

	if got := o.Report().Seed; got != 1 {
		t.Errorf("report seed = %d, want the cached seed 1", got)
	}

	if !bytes.Equal(aggregation.Encode(first), aggregation.Encode(second)) {
		t.Error("cache hit returned a different batch")
	}
}

func TestDeterministicSeedMismatchRegenerates(t *testing.T) {
	mgr := newTestCache(t)
	ctx := context.Background()

	cfg := phonyConfig()
	cfg.Seed = seed(1)

	if _, err := newTestOrchestrator(t, cfg, Deps{Cache: mgr}).Prepare(ctx); err != nil {
		t.Fatalf("seed 1 Prepare: %v", err)
	}

	cfg.Seed = seed(2)

	want, err := newTestOrchestrator(t, cfg, Deps{}).Prepare(ctx)
	if err != nil {
		t.Fatalf("uncached seed 2 Prepare: %v", err)
	}

	o := newTestOrchestrator(t, cfg, Deps{Cache: mgr})

	got, err := o.Prepare(ctx)
	if err != nil {
		t.Fatalf("seed 2 Prepare: %v", err)
	}

	if o.Report().CacheHit {
		t.Fatal("deterministic run accepted a batch from another seed")
	}

	if o.Report().Seed != 2 {
		t.Errorf("report seed = %d, want 2", o.Report().Seed)
	}

	if !bytes.Equal(aggregation.Encode(got), aggregation.Encode(want)) {
		t.Error("regenerated batch differs from the seed 2 batch")
	}

	// The seed 2 batch replaced the seed 1 artifact.
	again := newTestOrchestrator(t, cfg, Deps{Cache: mgr})
	if _, err := again.Prepare(ctx); err != nil {
		t.Fatalf("repeat Prepare: %v", err)
	}

	if !again.Report().CacheHit || again.Report().Seed != 2 {
		t.Errorf("repeat run: hit=%v seed=%d, want hit with seed 2", again.Report().CacheHit, again.Report().Seed)
	}
}

func TestRealAndPhonyDoNotShareCache(t *testing.T) {
	mgr := newTestCache(t)
	ctx := context.Background()

	if _, err := newTestOrchestrator(t, phonyConfig(), Deps{Cache: mgr}).Prepare(ctx); err != nil {
		t.Fatalf("phony Prepare: %v", err)
	}

	cfg := phonyConfig()
	cfg.Strategy = strategy.Real

	o := newTestOrchestrator(t, cfg, Deps{Cache: mgr})
	if _, err := o.Prepare(ctx); err != nil {
		t.Fatalf("real Prepare: %v", err)
	}

	if o.Report().CacheHit {
		t.Fatal("real run loaded the phony batch")
	}

	keys, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(keys) != 2 {
		t.Errorf("got %d artifacts, want 2", len(keys))
	}
}

// keylessStrategy hands out per-item keys, which leaves SingleKey
// batches without a shared key.
type keylessStrategy struct {
	failAt int // failAt makes Sign fail for that item; -1 never fails
}

func (s *keylessStrategy) Kind() strategy.Kind { return strategy.Real }
func (s *keylessStrategy) Seed() uint64        { return 1 }
func (s *keylessStrategy) Params() xmss.Params { return xmss.Params{LogLifetime: 4} }
func (s *keylessStrategy) PerItemKeys() bool   { return true }

func (s *keylessStrategy) GenerateKeyPair(r strategy.EpochRange, _ *strategy.Stream) (*strategy.KeyPair, error) {
	kp := &strategy.KeyPair{}
	kp.Public.Root[0] = byte(r.Start)

	return kp, nil
}

func (s *keylessStrategy) Sign(_ *strategy.KeyPair, epoch uint32, _ xmss.Message, _ *strategy.Stream) (xmss.Signature, error) {
	if int(epoch) == s.failAt {
		return xmss.Signature{}, errors.New("signer exploded")
	}

	return xmss.Signature{Path: make([]xmss.Digest, 4)}, nil
}

func TestValidationFailureAborts(t *testing.T) {
	mgr := newTestCache(t)
	m := metrics.New()

	cfg := Config{Strategy: strategy.Real, Mode: aggregation.SingleKey, BatchSize: 4, LogLifetime: 4, Seed: seed(1)}
	o := newTestOrchestrator(t, cfg, Deps{Cache: mgr, Metrics: m})
	o.newStrategy = func(strategy.Kind, strategy.Options) (strategy.Strategy, error) {
		return &keylessStrategy{failAt: -1}, nil
	}

	_, err := o.Prepare(context.Background())

	var missing *aggregation.MissingPublicKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingPublicKeyError", err)
	}

	assertStates(t, o.Report().States, Idle, SelectStrategy, CacheMiss, GenerateItems, Validate, Aborted)

	if keys, _ := mgr.List(); len(keys) != 0 {
		t.Errorf("invalid batch was cached: %v", keys)
	}

	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("missing_public_key")); got != 1 {
		t.Errorf("got %v validation failures, want 1", got)
	}
}

func TestGenerationFailureAborts(t *testing.T) {
	cfg := Config{Strategy: strategy.Real, Mode: aggregation.MultiKey, BatchSize: 8, LogLifetime: 4, Seed: seed(1), Workers: 2}
	o := newTestOrchestrator(t, cfg, Deps{})
	o.newStrategy = func(strategy.Kind, strategy.Options) (strategy.Strategy, error) {
		return &keylessStrategy{failAt: 5}, nil
	}

	_, err := o.Prepare(context.Background())

	var gen *strategy.GenerationError
	if !errors.As(err, &gen) {
		t.Fatalf("got %v, want GenerationError", err)
	}

	if gen.Index != 5 {
		t.Errorf("got index %d, want 5", gen.Index)
	}

	if o.State() != Aborted {
		t.Errorf("got state %s, want Aborted", o.State())
	}
}

// failingStore accepts reads and rejects writes.
type failingStore struct{}

func (failingStore) Get(string) ([]byte, error) { return nil, nil }
func (failingStore) Put(string, []byte) error   { return errors.New("disk full") }
func (failingStore) Delete(string) error        { return nil }
func (failingStore) List() ([]string, error)    { return nil, nil }
func (failingStore) Close() error               { return nil }

func TestCacheWriteFailureKeepsBatch(t *testing.T) {
	mgr, err := cache.NewManager(failingStore{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer mgr.Close()

	o := newTestOrchestrator(t, phonyConfig(), Deps{Cache: mgr})

	batch, err := o.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if batch.Len() != 4 {
		t.Errorf("got %d items, want 4", batch.Len())
	}

	if o.Report().CacheStoreErr == nil {
		t.Error("cache write failure not reported")
	}
}

func TestPrepareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := phonyConfig()
	cfg.BatchSize = 64

	if _, err := newTestOrchestrator(t, cfg, Deps{}).Prepare(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSingleUse(t *testing.T) {
	o := newTestOrchestrator(t, phonyConfig(), Deps{})

	if _, err := o.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if _, err := o.Prepare(context.Background()); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("got %v, want ErrIllegalTransition", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := phonyConfig()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero lifetime", func(c *Config) { c.LogLifetime = 0 }},
		{"huge lifetime", func(c *Config) { c.LogLifetime = 33 }},
		{"deterministic without seed", func(c *Config) { c.Seed = nil }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"batch beyond lifetime", func(c *Config) { c.LogLifetime = 2; c.BatchSize = 5 }},
		{"phony single key", func(c *Config) { c.Mode = aggregation.SingleKey }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"batch beyond header", func(c *Config) {
			size := uint64(math.MaxUint32) + 1
			c.LogLifetime = 32
			c.BatchSize = int(size)
		}},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tc := range tests {
		cfg := phonyConfig()
		tc.modify(&cfg)

		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: got %v, want ErrInvalidConfig", tc.name, err)
		}

		if _, err := NewOrchestrator(cfg, Deps{}); err == nil {
			t.Errorf("%s: orchestrator accepted invalid config", tc.name)
		}
	}
}

func TestDeterministicMessage(t *testing.T) {
	msg := DeterministicMessage(255)

	if msg[0] != 255 || msg[1] != 0 || msg[31] != 30 {
		t.Errorf("unexpected bytes: %v", msg[:4])
	}
}

func TestStateString(t *testing.T) {
	if CacheMiss.String() != "CacheMiss" || State(99).String() != "State(99)" {
		t.Error("unexpected state names")
	}
}
