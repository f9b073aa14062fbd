// Command bashkit-bench runs a script repeatedly across concurrent
// sessions to measure throughput, bounding concurrency with
// golang.org/x/sync/semaphore the way the teacher's own runtime bounds
// concurrent work (runtime/executor/pipeline_runner.go's WaitGroup
// pattern, generalized here to a weighted semaphore since runs are
// independent rather than pipeline stages).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/bashkit/bashkit/internal/config"
	"github.com/bashkit/bashkit/internal/session"
)

func main() {
	if err := newBenchCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBenchCmd() *cobra.Command {
	var (
		file        string
		runs        int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "bashkit-bench",
		Short: "Benchmark repeated bashkit executions of one script",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return runBench(string(data), runs, concurrency)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "script file to benchmark")
	cmd.Flags().IntVar(&runs, "runs", 100, "total number of executions")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "maximum concurrent sessions")
	cmd.MarkFlagRequired("file")
	return cmd
}

type benchStats struct {
	completed int64
	failed    int64
}

func runBench(src string, runs, concurrency int) error {
	sem := semaphore.NewWeighted(int64(concurrency))
	ctx := context.Background()
	cfg := config.Default()

	var wg sync.WaitGroup
	var stats benchStats
	start := time.Now()

	for i := 0; i < runs; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			sess, err := session.Open(session.WithConfig(cfg))
			if err != nil {
				atomic.AddInt64(&stats.failed, 1)
				return
			}
			result := sess.Exec(src, strings.NewReader(""))
			if result.ExitStatus != 0 {
				atomic.AddInt64(&stats.failed, 1)
			} else {
				atomic.AddInt64(&stats.completed, 1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("runs=%d completed=%d failed=%d elapsed=%s throughput=%.1f/s\n",
		runs, stats.completed, stats.failed, elapsed, float64(runs)/elapsed.Seconds())
	return nil
}
