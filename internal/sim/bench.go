package sim

import (
	"context"
	"sync"
	"time"
)

// BenchResult is the throughput of one headless driver.
type BenchResult struct {
	Ticks   int
	Elapsed time.Duration
	Objects int
	Hits    uint64
	Evicted uint64
	Dropped uint64
}

// TicksPerSecond returns the measured tick rate.
func (r BenchResult) TicksPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ticks) / r.Elapsed.Seconds()
}

// Ensemble runs independent drivers in parallel, each as fast as it can.
type Ensemble struct {
	build func(run int) (*Driver, error)
	runs  int
}

// NewEnsemble returns an ensemble of runs drivers made by build.
func NewEnsemble(runs int, build func(run int) (*Driver, error)) *Ensemble {
	return &Ensemble{build: build, runs: runs}
}

// Run ticks every driver ticks times with a fixed elapsed of one step.
func (e *Ensemble) Run(ctx context.Context, ticks int) ([]BenchResult, error) {
	results := make([]BenchResult, e.runs)
	errs := make([]error, e.runs)

	var wg sync.WaitGroup
	for i := 0; i < e.runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			d, err := e.build(idx)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = d.bench(ctx, ticks)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (d *Driver) bench(ctx context.Context, ticks int) (BenchResult, error) {
	dt := d.Dt()
	start := time.Now()
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return BenchResult{}, ctx.Err()
		default:
		}
		d.Tick(dt)
	}
	f := d.Frame()
	return BenchResult{
		Ticks:   ticks,
		Elapsed: time.Since(start),
		Objects: f.Count(),
		Hits:    f.Hits,
		Evicted: f.Evicted,
		Dropped: f.Drops.Total(),
	}, nil
}
