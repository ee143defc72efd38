package generate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/datagen-jp/instructgen/workerpool"
)

// Sink receives committed entries and owns the on-disk state for the run.
// Implementations need not be safe for concurrent use: the dispatcher
// serializes every call under its own lock.
type Sink interface {
	Commit(Entry) error
	Finalize() error
	Dataset() []Entry
}

// DispatcherOpts ...
type DispatcherOpts struct {
	// TargetSize is the number of entries to commit before stopping.
	TargetSize int
	// ProgressEvery controls how often committed progress is logged.
	ProgressEvery int
}

// Dispatcher schedules generation attempts across the live endpoints and
// forwards committed entries to the sink. Dataset, chunk and progress state
// are mutated only under one lock, by the code path that handles a completed
// attempt.
type Dispatcher struct {
	gen  *Generator
	pool *Pool
	sink Sink
	opts DispatcherOpts

	m         sync.Mutex
	committed int
	abandoned int
	latencies map[string][]float64
}

// NewDispatcher ...
func NewDispatcher(gen *Generator, pool *Pool, sink Sink, opts DispatcherOpts) *Dispatcher {
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 10
	}
	return &Dispatcher{
		gen:       gen,
		pool:      pool,
		sink:      sink,
		opts:      opts,
		latencies: make(map[string][]float64),
	}
}

// Run generates entries until the target size is reached or ctx is
// cancelled, and returns the committed dataset. Finalize always runs exactly
// once, so entries committed before an interruption are never lost; a
// cancelled run simply stops short of the target. A finalize failure is the
// run's failure: completed work may not have been persisted.
func (d *Dispatcher) Run(ctx context.Context) (dataset []Entry, runErr error) {
	defer func() {
		if err := d.sink.Finalize(); err != nil {
			log.Printf("[ERROR] finalize failed: %v", err)
			if runErr == nil {
				runErr = err
			}
		}
		d.logSummary()
	}()

	if d.pool.Size() == 1 {
		runErr = d.runSequential(ctx)
	} else {
		runErr = d.runParallel(ctx)
	}
	return d.sink.Dataset(), runErr
}

// runSequential is the single-endpoint mode: one blocking attempt at a time.
func (d *Dispatcher) runSequential(ctx context.Context) error {
	for d.committed < d.opts.TargetSize {
		if ctx.Err() != nil {
			log.Printf("[INFO] run interrupted, writing partial results")
			return nil
		}

		endpoint := d.pool.Next()
		start := time.Now()
		out := d.gen.Generate(ctx, endpoint)
		if err := d.collect(out, endpoint, time.Since(start)); err != nil {
			return err
		}
	}
	return nil
}

// runParallel dispatches batches of min(live, remaining) attempts on a pool
// sized to the live endpoint count, which bounds in-flight work and keeps
// overshoot past the target to at most one batch.
func (d *Dispatcher) runParallel(ctx context.Context) error {
	pool := workerpool.NewWithCtx(ctx, d.pool.Size())
	defer pool.Stop()

	type completion struct {
		out      Outcome
		endpoint string
		elapsed  time.Duration
	}

	for {
		d.m.Lock()
		remaining := d.opts.TargetSize - d.committed
		d.m.Unlock()
		if remaining <= 0 {
			break
		}
		if ctx.Err() != nil {
			log.Printf("[INFO] run interrupted, writing partial results")
			return nil
		}

		batch := d.pool.Size()
		if remaining < batch {
			batch = remaining
		}

		results := make(chan completion, batch)
		jobs := make([]workerpool.Job, 0, batch)
		for i := 0; i < batch; i++ {
			endpoint := d.pool.Next()
			jobs = append(jobs, func() error {
				start := time.Now()
				out := d.gen.Generate(ctx, endpoint)
				results <- completion{out: out, endpoint: endpoint, elapsed: time.Since(start)}
				return nil
			})
		}
		pool.Add(jobs)

		// completions arrive in arbitrary order; dataset order reflects
		// completion order
		for i := 0; i < batch; i++ {
			select {
			case c := <-results:
				if err := d.collect(c.out, c.endpoint, c.elapsed); err != nil {
					return err
				}
			case <-ctx.Done():
				// the pool drops queued attempts on cancellation; stop
				// waiting for completions that will never arrive
				log.Printf("[INFO] run interrupted, writing partial results")
				return nil
			}
		}
	}
	return nil
}

// collect commits or discards one completed attempt. Append, counter update
// and the chunk-flush check inside the sink happen as one atomic unit.
func (d *Dispatcher) collect(out Outcome, endpoint string, elapsed time.Duration) error {
	d.m.Lock()
	defer d.m.Unlock()

	d.latencies[endpoint] = append(d.latencies[endpoint], elapsed.Seconds())

	if out.Abandoned {
		d.abandoned++
		if out.Err != nil {
			log.Printf("[WARN] generation attempt failed on %s: %s: %v", ServerName(endpoint), out.Reason, out.Err)
		} else {
			log.Printf("[WARN] generation attempt failed on %s: %s", ServerName(endpoint), out.Reason)
		}
		return nil
	}

	if d.committed >= d.opts.TargetSize {
		// quota already reached by a faster task in the same batch
		return nil
	}

	if err := d.sink.Commit(out.Entry); err != nil {
		return err
	}
	d.committed++
	if d.committed%d.opts.ProgressEvery == 0 || d.committed == d.opts.TargetSize {
		log.Printf("[INFO] committed %d/%d entries", d.committed, d.opts.TargetSize)
	}
	return nil
}

// logSummary reports per-endpoint latency after the run.
func (d *Dispatcher) logSummary() {
	d.m.Lock()
	defer d.m.Unlock()

	log.Printf("[INFO] run finished: %d committed, %d abandoned", d.committed, d.abandoned)
	for _, endpoint := range d.pool.Live() {
		samples := d.latencies[endpoint]
		if len(samples) == 0 {
			continue
		}
		mean, _ := stats.Mean(samples)
		median, _ := stats.Median(samples)
		log.Printf("[INFO] server %s: %d attempts, mean %.2fs, median %.2fs",
			ServerName(endpoint), len(samples), mean, median)
	}
}
