package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/bench"
	"SigAgg/internal/logger"
	"SigAgg/internal/strategy"
)

const (
	// envPhonyKeys selects phony key material when set to a true value.
	envPhonyKeys = "PHONY_KEYS"

	// envBatchSize overrides the number of signatures.
	envBatchSize = "NUM_SIGNATURES_OVERRIDE"
)

// Config holds the command-line configuration.
type Config struct {
	// BatchSize is the -n flag; zero means not given.
	BatchSize int

	// Mode is the aggregation mode name.
	Mode string

	// LogLifetime is the tree height.
	LogLifetime int

	// Seed is the -seed flag value, meaningful only when SeedSet.
	Seed uint64

	// SeedSet reports whether -seed was given.
	SeedSet bool

	// Deterministic requires a seed.
	Deterministic bool

	// PhonyKeys is the -phony-keys flag.
	PhonyKeys bool

	// Workers bounds generation parallelism.
	Workers int

	// CacheDir is the artifact directory.
	CacheDir string

	// CacheBackend is file or pebble.
	CacheBackend string

	// NoCache disables the batch cache.
	NoCache bool

	// ListCache prints cached artifacts and exits.
	ListCache bool

	// ClearCache removes cached artifacts and exits.
	ClearCache bool

	// AttesterSeed derives the attester's BLS key.
	AttesterSeed string

	// Lenient lets the attester count invalid signatures instead of failing.
	Lenient bool

	// MetricsOut is the Prometheus textfile path; empty disables export.
	MetricsOut string

	// LogLevel is the minimum log level.
	LogLevel string
}

// parseFlags parses command-line arguments into Config.
func parseFlags(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("sigbench", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&cfg.BatchSize, "n", 0, "Number of signatures (default $"+envBatchSize+" or "+strconv.Itoa(bench.DefaultBatchSize)+")")
	fs.StringVar(&cfg.Mode, "mode", "multi", "Aggregation mode: single or multi")
	fs.IntVar(&cfg.LogLifetime, "log-lifetime", 18, "Tree height (log2 of epochs per key)")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "Seed for all generated randomness (random if unset)")
	fs.BoolVar(&cfg.Deterministic, "deterministic", false, "Require -seed so runs are reproducible")
	fs.BoolVar(&cfg.PhonyKeys, "phony-keys", false, "Fabricate authentication paths (benchmark only, also $"+envPhonyKeys+")")
	fs.IntVar(&cfg.Workers, "workers", 0, "Generation workers (default GOMAXPROCS)")
	fs.StringVar(&cfg.CacheDir, "cache-dir", "./tmp", "Batch cache directory")
	fs.StringVar(&cfg.CacheBackend, "cache-backend", "file", "Batch cache backend: file or pebble")
	fs.BoolVar(&cfg.NoCache, "no-cache", false, "Disable the batch cache")
	fs.BoolVar(&cfg.ListCache, "list-cache", false, "List cached batches and exit")
	fs.BoolVar(&cfg.ClearCache, "clear-cache", false, "Remove cached batches and exit")
	fs.StringVar(&cfg.AttesterSeed, "attester-seed", "sigbench-local-attester", "Seed of the local attester key")
	fs.BoolVar(&cfg.Lenient, "lenient", false, "Count invalid signatures instead of failing the proof")
	fs.StringVar(&cfg.MetricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.SeedSet = true
		}
	})

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return cfg, nil
}

// benchConfig resolves flags and environment into the run configuration.
func (c *Config) benchConfig(getenv func(string) string) (bench.Config, error) {
	mode, err := aggregation.ParseMode(c.Mode)
	if err != nil {
		return bench.Config{}, err
	}

	cfg := bench.Config{
		Strategy:      selectStrategy(c.PhonyKeys, getenv),
		Mode:          mode,
		BatchSize:     resolveBatchSize(c.BatchSize, getenv),
		LogLifetime:   c.LogLifetime,
		Deterministic: c.Deterministic,
		Workers:       c.Workers,
	}

	if c.SeedSet {
		seed := c.Seed
		cfg.Seed = &seed
	}

	if err := cfg.Validate(); err != nil {
		return bench.Config{}, err
	}

	return cfg, nil
}

// selectStrategy returns Phony when either the flag or the environment
// switch is on, Real otherwise.
func selectStrategy(flagSet bool, getenv func(string) string) strategy.Kind {
	if flagSet || envTrue(getenv(envPhonyKeys)) {
		return strategy.Phony
	}

	return strategy.Real
}

// envTrue accepts 1, true, TRUE and True.
func envTrue(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

// resolveBatchSize prefers the flag, then the environment override, then
// the default. An unusable override is logged and ignored.
func resolveBatchSize(flagValue int, getenv func(string) string) int {
	if flagValue != 0 {
		return flagValue
	}

	raw := strings.TrimSpace(getenv(envBatchSize))
	if raw == "" {
		return bench.DefaultBatchSize
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn("ignoring invalid signature count override",
			"env", envBatchSize,
			"value", raw,
			"default", bench.DefaultBatchSize,
		)
		return bench.DefaultBatchSize
	}

	return n
}
