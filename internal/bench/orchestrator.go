package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/cache"
	"SigAgg/internal/logger"
	"SigAgg/internal/metrics"
	"SigAgg/internal/prover"
	"SigAgg/internal/strategy"

	"github.com/google/uuid"
)

// ErrIllegalTransition is returned when a run is driven out of order.
var ErrIllegalTransition = errors.New("illegal orchestrator transition")

// Deps are the collaborators of an orchestrator. Any of them may be nil:
// no cache means every run generates, no prover means runs stop at BatchReady.
type Deps struct {
	Cache   *cache.Manager   // Cache persists batches between runs
	Prover  prover.Prover    // Prover receives the ready batch
	Metrics *metrics.Metrics // Metrics records run statistics
}

// Timings are the durations of the phases of one run.
type Timings struct {
	Prepare  time.Duration // Prepare spans SelectStrategy to BatchReady
	Generate time.Duration // Generate is zero on a cache hit
	Validate time.Duration // Validate is zero on a cache hit
	Prove    time.Duration // Prove is zero without a prover
	Verify   time.Duration // Verify is zero without a prover
}

// Report describes one run.
type Report struct {
	RunID         uuid.UUID          // RunID identifies the run in logs
	Config        Config             // Config is the configuration the run used
	Seed          uint64             // Seed is the seed the batch was generated from
	CacheKey      cache.Key          // CacheKey is the key the batch is cached under
	States        []State            // States is the path through the state machine
	CacheHit      bool               // CacheHit is set when the batch came from the cache
	CacheStoreErr error              // CacheStoreErr is a non-fatal cache write failure
	Batch         *aggregation.Batch // Batch is the prepared batch
	Receipt       *prover.Receipt    // Receipt is the prover's answer, nil without a prover
	Verified      bool               // Verified is set when the receipt checked out
	Timings       Timings            // Timings are phase durations
}

// Orchestrator drives one benchmark run:
// Idle → SelectStrategy → (CacheHit | CacheMiss → GenerateItems → Validate → StoreCache) → BatchReady → HandOff.
// An orchestrator is single-use.
type Orchestrator struct {
	cfg         Config
	deps        Deps
	log         *slog.Logger
	newStrategy func(strategy.Kind, strategy.Options) (strategy.Strategy, error)

	report *Report
	state  State
}

// NewOrchestrator validates cfg and returns an orchestrator in the Idle state.
func NewOrchestrator(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id:\n%w", err)
	}

	return &Orchestrator{
		cfg:         cfg,
		deps:        deps,
		log:         logger.With("run", runID.String()),
		newStrategy: strategy.New,
		report: &Report{
			RunID:    runID,
			Config:   cfg,
			CacheKey: cfg.CacheKey(),
			States:   []State{Idle},
		},
		state: Idle,
	}, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Report returns the run report so far.
func (o *Orchestrator) Report() *Report {
	return o.report
}

// transition moves to the next state.
func (o *Orchestrator) transition(to State) error {
	if !canTransition(o.state, to) {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, o.state, to)
	}

	o.log.Debug("state", "from", o.state, "to", to)
	o.state = to
	o.report.States = append(o.report.States, to)

	return nil
}

// abort records the failure and returns err.
func (o *Orchestrator) abort(err error) error {
	if canTransition(o.state, Aborted) {
		_ = o.transition(Aborted)
	}

	o.log.Error("run aborted", "error", err)

	return err
}

// Prepare runs the state machine up to BatchReady and returns the batch.
func (o *Orchestrator) Prepare(ctx context.Context) (*aggregation.Batch, error) {
	start := time.Now()

	if err := o.transition(SelectStrategy); err != nil {
		return nil, err
	}

	strat, err := o.newStrategy(o.cfg.Strategy, strategy.Options{
		LogLifetime:   o.cfg.LogLifetime,
		Deterministic: o.cfg.Deterministic,
		Seed:          o.cfg.Seed,
	})
	if err != nil {
		return nil, o.abort(err)
	}
	o.report.Seed = strat.Seed()

	o.log.Info("strategy selected",
		"strategy", strat.Kind(),
		"mode", o.cfg.Mode,
		"n", o.cfg.BatchSize,
		"log_lifetime", o.cfg.LogLifetime,
		"seed", strat.Seed(),
	)

	batch, err := o.loadOrBuild(ctx, strat)
	if err != nil {
		return nil, err
	}

	if err := o.transition(BatchReady); err != nil {
		return nil, err
	}

	o.report.Batch = batch
	o.report.Timings.Prepare = time.Since(start)
	o.deps.Metrics.ObservePhase("prepare", start)

	o.log.Info("batch ready",
		"items", batch.Len(),
		"cache_hit", o.report.CacheHit,
		logger.Timed(start),
	)

	return batch, nil
}

// loadOrBuild takes the cache-hit or cache-miss branch.
func (o *Orchestrator) loadOrBuild(ctx context.Context, strat strategy.Strategy) (*aggregation.Batch, error) {
	key := o.report.CacheKey

	if o.deps.Cache != nil {
		batch, seed, ok := o.deps.Cache.Load(key)

		// A reproducible run only accepts a batch built from its own seed.
		if ok && o.cfg.Deterministic && seed != strat.Seed() {
			o.log.Info("cached batch has another seed, regenerating",
				"artifact", key.String(),
				"cached_seed", seed,
				"seed", strat.Seed(),
			)
			ok = false
		}

		o.deps.Metrics.CacheLookup(key.Strategy.String(), ok)

		if ok {
			o.report.CacheHit = true
			o.report.Seed = seed
			o.log.Info("cache hit", "artifact", key.String(), "seed", seed)

			if err := o.transition(CacheHit); err != nil {
				return nil, err
			}

			return batch, nil
		}

		o.log.Info("cache miss", "artifact", key.String())
	}

	if err := o.transition(CacheMiss); err != nil {
		return nil, err
	}

	return o.build(ctx, strat)
}

// build generates, validates and stores a fresh batch.
func (o *Orchestrator) build(ctx context.Context, strat strategy.Strategy) (*aggregation.Batch, error) {
	if err := o.transition(GenerateItems); err != nil {
		return nil, err
	}

	start := time.Now()
	workers := o.cfg.workers(o.cfg.BatchSize)

	gen, err := generate(ctx, strat, o.cfg.Mode, o.cfg.BatchSize, workers)
	if err != nil {
		return nil, o.abort(fmt.Errorf("generate items:\n%w", err))
	}

	o.report.Timings.Generate = time.Since(start)
	o.deps.Metrics.ObservePhase("generate", start)
	o.deps.Metrics.Generated(strat.Kind().String(), len(gen.items))
	o.log.Info("items generated", "n", len(gen.items), "workers", workers, logger.Timed(start))

	// Validation starts only after every worker has finished.
	if err := o.transition(Validate); err != nil {
		return nil, err
	}

	start = time.Now()

	batch, err := aggregation.Aggregate(gen.items, o.cfg.Mode, gen.sharedKey)
	if err != nil {
		o.deps.Metrics.ValidationFailed(aggregation.Kind(err))
		return nil, o.abort(fmt.Errorf("validate batch:\n%w", err))
	}

	o.report.Timings.Validate = time.Since(start)
	o.deps.Metrics.ObservePhase("validate", start)

	if err := o.transition(StoreCache); err != nil {
		return nil, err
	}

	if o.deps.Cache != nil {
		if err := o.deps.Cache.Save(o.report.CacheKey, strat.Seed(), batch); err != nil {
			o.report.CacheStoreErr = err
			o.log.Warn("cache write failed, continuing with in-memory batch", "error", err)
		}
	}

	return batch, nil
}

// Run prepares the batch and hands it to the prover, then verifies the receipt.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	batch, err := o.Prepare(ctx)
	if err != nil {
		return o.report, err
	}

	if err := o.transition(HandOff); err != nil {
		return o.report, err
	}

	if o.deps.Prover == nil {
		o.log.Info("no prover configured, stopping after hand-off")
		return o.report, nil
	}

	start := time.Now()

	receipt, err := o.deps.Prover.Prove(ctx, batch)
	if err != nil {
		return o.report, o.abort(fmt.Errorf("prove batch:\n%w", err))
	}

	o.report.Receipt = receipt
	o.report.Timings.Prove = time.Since(start)
	o.deps.Metrics.ObservePhase("prove", start)
	o.deps.Metrics.Verified(receipt.VerifiedCount)

	o.log.Info("batch proved",
		"verified", receipt.VerifiedCount,
		"proof_bytes", len(receipt.Proof),
		logger.Timed(start),
	)

	start = time.Now()

	ok, err := o.deps.Prover.Verify(ctx, batch, receipt)
	if err != nil {
		return o.report, o.abort(fmt.Errorf("verify receipt:\n%w", err))
	}

	o.report.Verified = ok
	o.report.Timings.Verify = time.Since(start)
	o.deps.Metrics.ObservePhase("verify", start)

	if !ok {
		o.log.Warn("receipt did not verify")
	}

	return o.report, nil
}
