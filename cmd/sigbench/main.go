package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"SigAgg/internal/bench"
	"SigAgg/internal/cache"
	"SigAgg/internal/logger"
	"SigAgg/internal/metrics"
	"SigAgg/internal/prover"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.InitWithWriter(os.Stdout, level)

	mgr, err := openCache(cfg)
	if err != nil {
		return fmt.Errorf("open cache:\n%w", err)
	}
	if mgr != nil {
		defer mgr.Close()
	}

	if cfg.ListCache || cfg.ClearCache {
		return manageCache(mgr, cfg)
	}

	benchCfg, err := cfg.benchConfig(os.Getenv)
	if err != nil {
		return err
	}

	attester, err := prover.NewAttester([]byte(cfg.AttesterSeed), !cfg.Lenient)
	if err != nil {
		return err
	}

	m := metrics.New()

	o, err := bench.NewOrchestrator(benchCfg, bench.Deps{
		Cache:   mgr,
		Prover:  attester,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, runErr := o.Run(ctx)

	if cfg.MetricsOut != "" {
		if err := m.WriteTextfile(cfg.MetricsOut); err != nil {
			logger.Warn("metrics export failed", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run %s:\n%w", rep.RunID, runErr)
	}

	printReport(os.Stdout, rep)

	return nil
}

// openCache opens the configured cache backend, or returns nil when disabled.
func openCache(cfg *Config) (*cache.Manager, error) {
	if cfg.NoCache {
		return nil, nil
	}

	var (
		store cache.Store
		err   error
	)

	switch cfg.CacheBackend {
	case "file":
		store, err = cache.NewFileStore(cfg.CacheDir)
	case "pebble":
		store, err = cache.NewPebbleStore(filepath.Join(cfg.CacheDir, "pebble"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	if err != nil {
		return nil, err
	}

	mgr, err := cache.NewManager(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return mgr, nil
}

// manageCache lists or clears the cache.
func manageCache(mgr *cache.Manager, cfg *Config) error {
	if mgr == nil {
		return fmt.Errorf("cache is disabled")
	}

	if cfg.ClearCache {
		n, err := mgr.Purge()
		if err != nil {
			return fmt.Errorf("clear cache:\n%w", err)
		}

		logger.Info("cache cleared", "artifacts", n, "dir", cfg.CacheDir)

		return nil
	}

	keys, err := mgr.List()
	if err != nil {
		return fmt.Errorf("list cache:\n%w", err)
	}

	printCacheList(os.Stdout, keys)

	return nil
}
