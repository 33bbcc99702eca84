package bench

import (
	"context"
	"sync"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/strategy"
	"SigAgg/internal/xmss"
)

// generated is the output of the generation phase.
type generated struct {
	items     []aggregation.VerificationItem
	sharedKey *xmss.PublicKey // sharedKey is set when one key pair signs every item
}

// generate produces n items with a pool of workers. Item i uses epoch i and
// DeterministicMessage(i), and draws all randomness from ItemStream(seed, i),
// so the result does not depend on scheduling.
func generate(ctx context.Context, strat strategy.Strategy, mode aggregation.Mode, n, workers int) (*generated, error) {
	var shared *strategy.KeyPair

	if !strat.PerItemKeys() {
		kp, err := strat.GenerateKeyPair(
			strategy.EpochRange{Start: 0, Count: uint32(n)},
			strategy.KeyStream(strat.Seed()),
		)
		if err != nil {
			return nil, &strategy.GenerationError{Index: -1, Strategy: strat.Kind(), Err: err}
		}
		shared = kp
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]aggregation.VerificationItem, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}

				if err := generateItem(strat, shared, mode, i, &items[i]); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					cancel()
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	// Parent context cancelled while feeding.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &generated{items: items}
	if shared != nil {
		pk := shared.Public
		out.sharedKey = &pk
	}

	return out, nil
}

// generateItem builds item i end to end into out.
func generateItem(strat strategy.Strategy, shared *strategy.KeyPair, mode aggregation.Mode, i int, out *aggregation.VerificationItem) error {
	src := strategy.ItemStream(strat.Seed(), uint64(i))
	epoch := uint32(i)

	kp := shared
	if kp == nil {
		var err error
		kp, err = strat.GenerateKeyPair(strategy.EpochRange{Start: epoch, Count: 1}, src)
		if err != nil {
			return &strategy.GenerationError{Index: i, Strategy: strat.Kind(), Err: err}
		}
	}

	msg := DeterministicMessage(i)

	sig, err := strat.Sign(kp, epoch, msg, src)
	if err != nil {
		return &strategy.GenerationError{Index: i, Strategy: strat.Kind(), Err: err}
	}

	*out = aggregation.VerificationItem{
		Message:   msg,
		Epoch:     epoch,
		Signature: sig,
	}

	if mode == aggregation.MultiKey {
		pk := kp.Public
		out.PublicKey = &pk
	}

	return nil
}
