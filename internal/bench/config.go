package bench

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/cache"
	"SigAgg/internal/strategy"
	"SigAgg/internal/xmss"
)

// DefaultBatchSize is the number of signatures when none is configured.
const DefaultBatchSize = 100

// ErrInvalidConfig is the kind of every configuration error.
var ErrInvalidConfig = errors.New("invalid benchmark configuration")

// Config is everything a run needs, read once and passed explicitly.
type Config struct {
	Strategy      strategy.Kind    // Strategy selects real or phony key material
	Mode          aggregation.Mode // Mode is the aggregation mode of the batch
	BatchSize     int              // BatchSize is the number of signatures
	LogLifetime   int              // LogLifetime is the tree height
	Deterministic bool             // Deterministic requires Seed
	Seed          *uint64          // Seed roots all randomness; random when nil
	Workers       int              // Workers bounds generation parallelism; 0 uses GOMAXPROCS
}

// Validate reports the first configuration problem.
func (c Config) Validate() error {
	params := xmss.Params{LogLifetime: c.LogLifetime}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Deterministic && c.Seed == nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, strategy.ErrMissingSeed)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d must be positive", ErrInvalidConfig, c.BatchSize)
	}

	if uint64(c.BatchSize) > math.MaxUint32 {
		return fmt.Errorf("%w: batch size %d does not fit a cache artifact header", ErrInvalidConfig, c.BatchSize)
	}

	if uint64(c.BatchSize) > params.Lifetime() {
		return fmt.Errorf("%w: batch size %d exceeds the %d epochs of a height %d tree",
			ErrInvalidConfig, c.BatchSize, params.Lifetime(), c.LogLifetime)
	}

	if c.Strategy == strategy.Phony && c.Mode == aggregation.SingleKey {
		return fmt.Errorf("%w: phony key material fabricates a root per item and needs %s mode",
			ErrInvalidConfig, aggregation.MultiKey)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Workers)
	}

	return nil
}

// CacheKey returns the key a batch for this configuration is cached under.
// The seed is not part of it. Artifacts record their seed instead, and a
// deterministic run only accepts a batch built from its own seed.
func (c Config) CacheKey() cache.Key {
	return cache.Key{
		Strategy:    c.Strategy,
		Mode:        c.Mode,
		BatchSize:   c.BatchSize,
		LogLifetime: c.LogLifetime,
	}
}

// workers returns the effective worker count for n items.
func (c Config) workers(n int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}

	return max(1, min(w, n))
}
