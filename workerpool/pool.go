package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to a Pool.
type Job func() error

// Pool runs jobs on a fixed number of workers. Jobs added after Stop is
// called, or still queued when Stop is called, are dropped.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc

	jobs chan Job
	wg   sync.WaitGroup

	m   sync.Mutex
	err error
}

// New returns a pool with the given number of workers.
func New(workers int) *Pool {
	return NewWithCtx(context.Background(), workers)
}

// NewWithCtx returns a pool whose workers exit when ctx is cancelled.
func NewWithCtx(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan Job),
	}
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			if err := job(); err != nil {
				p.m.Lock()
				if p.err == nil {
					p.err = err
				}
				p.m.Unlock()
			}
			p.wg.Done()
		}
	}
}

// Add submits jobs without blocking the caller.
func (p *Pool) Add(jobs []Job) {
	p.wg.Add(len(jobs))
	go func() {
		for _, job := range jobs {
			select {
			case p.jobs <- job:
			case <-p.ctx.Done():
				p.wg.Done()
			}
		}
	}()
}

// AddBlocking submits jobs, blocking until each has been handed to a worker.
func (p *Pool) AddBlocking(jobs []Job) {
	p.wg.Add(len(jobs))
	for _, job := range jobs {
		select {
		case p.jobs <- job:
		case <-p.ctx.Done():
			p.wg.Done()
		}
	}
}

// Wait blocks until all submitted jobs have completed or the pool has been
// stopped, and returns the first error returned by a job, if any.
func (p *Pool) Wait() error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-p.ctx.Done():
	}

	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop shuts the workers down. In-flight jobs run to completion; queued jobs
// are discarded.
func (p *Pool) Stop() {
	p.cancel()
}
