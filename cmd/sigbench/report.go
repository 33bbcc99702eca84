package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"SigAgg/internal/bench"
	"SigAgg/internal/cache"
)

// printReport writes a human-readable summary of a run.
func printReport(w io.Writer, rep *bench.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "strategy\t%s\n", rep.Config.Strategy)
	fmt.Fprintf(tw, "mode\t%s\n", rep.Config.Mode)
	fmt.Fprintf(tw, "signatures\t%d\n", rep.Config.BatchSize)
	fmt.Fprintf(tw, "log lifetime\t%d\n", rep.Config.LogLifetime)
	fmt.Fprintf(tw, "seed\t%d\n", rep.Seed)
	fmt.Fprintf(tw, "artifact\t%s\n", rep.CacheKey)
	fmt.Fprintf(tw, "cache\t%s\n", cacheResult(rep))
	fmt.Fprintf(tw, "prepare\t%s\n", rep.Timings.Prepare.Round(time.Microsecond))

	if !rep.CacheHit {
		fmt.Fprintf(tw, "  generate\t%s\n", rep.Timings.Generate.Round(time.Microsecond))
		fmt.Fprintf(tw, "  validate\t%s\n", rep.Timings.Validate.Round(time.Microsecond))
	}

	if rep.Receipt != nil {
		fmt.Fprintf(tw, "prove\t%s (%s)\n", rep.Timings.Prove.Round(time.Microsecond),
			throughput(rep.Receipt.VerifiedCount, rep.Timings.Prove))
		fmt.Fprintf(tw, "verify\t%s\n", rep.Timings.Verify.Round(time.Microsecond))
		fmt.Fprintf(tw, "verified\t%d/%d\n", rep.Receipt.VerifiedCount, rep.Batch.Len())
		fmt.Fprintf(tw, "proof\t%d bytes\n", len(rep.Receipt.Proof))
		fmt.Fprintf(tw, "receipt valid\t%t\n", rep.Verified)
	}

	tw.Flush()
}

// cacheResult describes what happened with the cache.
func cacheResult(rep *bench.Report) string {
	switch {
	case rep.CacheHit:
		return "hit"
	case rep.CacheStoreErr != nil:
		return "miss (store failed: " + rep.CacheStoreErr.Error() + ")"
	default:
		return "miss"
	}
}

// throughput formats signatures per second.
func throughput(n uint32, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.1f sig/s", float64(n)/d.Seconds())
}

// printCacheList writes one line per cached artifact.
func printCacheList(w io.Writer, keys []cache.Key) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "cache is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTIFACT\tSTRATEGY\tMODE\tN\tHEIGHT")

	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", k, k.Strategy, k.Mode, k.BatchSize, k.LogLifetime)
	}

	tw.Flush()
}
