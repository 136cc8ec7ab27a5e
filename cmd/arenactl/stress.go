package main

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/joshuapare/arenakit/arena/alloc"
	"github.com/joshuapare/arenakit/internal/parallel"
	"github.com/spf13/cobra"
)

var (
	stressWorkers int
	stressAllocs  int
	stressMaxSize int
	stressOS      bool
	stressSingle  bool
	stressRounds  int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 0, "Worker count (0 = all cores)")
	cmd.Flags().IntVar(&stressAllocs, "allocs", 1_000_000, "Allocations per worker per round")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 256, "Maximum allocation size in bytes")
	cmd.Flags().BoolVar(&stressOS, "os", false, "Back the pool with OS mappings instead of the aligned heap")
	cmd.Flags().BoolVar(&stressSingle, "single", false, "Collapse each worker's bump pair onto one slab")
	cmd.Flags().IntVar(&stressRounds, "rounds", 1, "Build rounds (the pool is reset between rounds)")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Hammer the block pool from many workers",
		Long: `The stress command allocates from the pool on every worker through
per-worker bump allocators, then reports throughput and the pool's memory
accounting.

Example:
  arenactl stress --workers 8 --allocs 2000000
  arenactl stress --os --rounds 3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

type stressReport struct {
	Workers     int
	Rounds      int
	Allocations int64
	Elapsed     time.Duration
	AllocsPerMs float64
	Stats       alloc.AllStats
}

func runStress() error {
	workers := stressWorkers
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}

	pool := alloc.NewPool(nil, stressOS)
	estimate := workers * stressAllocs * (stressMaxSize / 2)
	pool.InitEstimate(estimate, stressSingle, false)
	printVerbose("Estimated footprint: %d bytes across %d workers\n", estimate, workers)

	var total atomic.Int64
	start := time.Now()
	for round := 0; round < stressRounds; round++ {
		parallel.ForEachWorker(workers, func(worker int) {
			rng := rand.New(rand.NewSource(int64(round)<<16 | int64(worker)))
			local := pool.Local(worker)
			for i := 0; i < stressAllocs; i++ {
				bytes := 1 + rng.Intn(stressMaxSize)
				var buf []byte
				var err error
				if i&1 == 0 {
					buf, err = local.Alloc0(bytes, 8)
				} else {
					buf, err = local.Alloc1(bytes, 8)
				}
				if err != nil {
					panic(fmt.Sprintf("worker %d: %v", worker, err))
				}
				buf[0] = byte(i)
				total.Add(1)
			}
		})
		pool.Cleanup()
		if round+1 < stressRounds {
			pool.Reset()
		}
	}
	elapsed := time.Since(start)

	report := stressReport{
		Workers:     workers,
		Rounds:      stressRounds,
		Allocations: total.Load(),
		Elapsed:     elapsed,
		AllocsPerMs: float64(total.Load()) / float64(elapsed.Milliseconds()+1),
		Stats:       pool.Stats(),
	}
	defer pool.Clear()

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Workers: %d, rounds: %d\n", report.Workers, report.Rounds)
	printInfo("Allocations: %d in %s (%.0f allocs/ms)\n",
		report.Allocations, report.Elapsed, report.AllocsPerMs)
	printInfo("%s\n", report.Stats)
	return nil
}
