package cache

import (
	"fmt"
	"strconv"
	"strings"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/strategy"
)

// artifactPrefix starts every artifact name.
const artifactPrefix = "benchmark_data_"

// Key identifies a cached batch. Every field changes the bytes of the
// batch, so every field is part of the artifact name.
type Key struct {
	Strategy    strategy.Kind    // Strategy is the key material strategy that produced the batch
	Mode        aggregation.Mode // Mode is the aggregation mode
	BatchSize   int              // BatchSize is the number of items
	LogLifetime int              // LogLifetime is the authentication path length
}

// String returns the artifact name, e.g. benchmark_data_phony_multi_n4_h18.
func (k Key) String() string {
	return fmt.Sprintf("%s%s_%s_n%d_h%d", artifactPrefix, k.Strategy, k.Mode.Tag(), k.BatchSize, k.LogLifetime)
}

// ParseKey is the inverse of Key.String.
func ParseKey(name string) (Key, error) {
	rest, ok := strings.CutPrefix(name, artifactPrefix)
	if !ok {
		return Key{}, fmt.Errorf("parse key %q: missing %q prefix", name, artifactPrefix)
	}

	parts := strings.Split(rest, "_")
	if len(parts) != 4 || !strings.HasPrefix(parts[2], "n") || !strings.HasPrefix(parts[3], "h") {
		return Key{}, fmt.Errorf("parse key %q: want {strategy}_{mode}_n{size}_h{height}", name)
	}

	kind, err := strategy.ParseKind(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q:\n%w", name, err)
	}

	mode, err := aggregation.ParseMode(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q:\n%w", name, err)
	}

	n, err := strconv.Atoi(parts[2][1:])
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: batch size:\n%w", name, err)
	}

	h, err := strconv.Atoi(parts[3][1:])
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: height:\n%w", name, err)
	}

	k := Key{Strategy: kind, Mode: mode, BatchSize: n, LogLifetime: h}
	if k.String() != name {
		return Key{}, fmt.Errorf("parse key %q: not canonical", name)
	}

	return k, nil
}
