package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/joshuapare/arenakit/arena/partition"
	"github.com/joshuapare/arenakit/internal/parallel"
	"github.com/spf13/cobra"
)

var (
	partN       int
	partWorkers int
	partDensity float64
	partSeed    int64
)

func init() {
	cmd := newPartitionCmd()
	cmd.Flags().IntVar(&partN, "n", 10_000_000, "Element count")
	cmd.Flags().IntVar(&partWorkers, "workers", 0, "Worker count (0 = all cores)")
	cmd.Flags().Float64Var(&partDensity, "density", 0.5, "Fraction of elements below the pivot")
	cmd.Flags().Int64Var(&partSeed, "seed", 1, "RNG seed")
	rootCmd.AddCommand(cmd)
}

func newPartitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partition",
		Short: "Partition synthetic data in place, in parallel",
		Long: `The partition command fills a slice with random values, partitions it
around a pivot with per-side sum reductions, verifies the result, and reports
timing.

Example:
  arenactl partition --n 50000000 --workers 16
  arenactl partition --density 0.3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartition()
		},
	}
}

type partitionReport struct {
	N          int
	Workers    int
	Mid        int
	LeftSum    uint64
	RightSum   uint64
	Elapsed    time.Duration
	ItemsPerMs float64
}

func runPartition() error {
	workers := partWorkers
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}

	pivot := uint64(partDensity * float64(uint64(1)<<63))
	rng := rand.New(rand.NewSource(partSeed))
	items := make([]uint64, partN)
	for i := range items {
		items[i] = rng.Uint64() >> 1
	}

	printVerbose("Partitioning %d items on %d workers\n", partN, workers)

	start := time.Now()
	mid, left, right := partition.Slice(items, workers, uint64(0),
		func(v *uint64) bool { return *v < pivot },
		func(acc *uint64, v *uint64) { *acc += *v },
		func(acc, other *uint64) { *acc += *other },
	)
	elapsed := time.Since(start)

	for i := 0; i < mid; i++ {
		if items[i] >= pivot {
			return fmt.Errorf("misplaced item at %d: %d", i, items[i])
		}
	}
	for i := mid; i < len(items); i++ {
		if items[i] < pivot {
			return fmt.Errorf("misplaced item at %d: %d", i, items[i])
		}
	}

	report := partitionReport{
		N:          partN,
		Workers:    workers,
		Mid:        mid,
		LeftSum:    left,
		RightSum:   right,
		Elapsed:    elapsed,
		ItemsPerMs: float64(partN) / float64(elapsed.Milliseconds()+1),
	}
	if jsonOut {
		return printJSON(report)
	}
	printInfo("N: %d, workers: %d\n", report.N, report.Workers)
	printInfo("Mid: %d, left sum: %d, right sum: %d\n", report.Mid, report.LeftSum, report.RightSum)
	printInfo("Elapsed: %s (%.0f items/ms)\n", report.Elapsed, report.ItemsPerMs)
	return nil
}
