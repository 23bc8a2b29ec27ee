package dedup

import (
	"context"
	"sync"
)

type hashJob struct {
	path  string
	index int64
}

// hashPool fans hashing out to a fixed set of workers. Jobs may finish in
// any order; bucket appends are serialized by the store.
type hashPool struct {
	jobs     chan hashJob
	inflight sync.WaitGroup
	workers  sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newHashPool(ctx context.Context, n int, process func(ctx context.Context, job hashJob, worker int) error) *hashPool {
	p := &hashPool{jobs: make(chan hashJob, n*4)}
	for id := range n {
		p.workers.Add(1)
		go func() {
			defer p.workers.Done()
			for job := range p.jobs {
				if ctx.Err() == nil && p.failed() == nil {
					if err := process(ctx, job, id); err != nil {
						p.fail(err)
					}
				}
				p.inflight.Done()
			}
		}()
	}
	return p
}

// submit queues a job, blocking while every worker is busy.
func (p *hashPool) submit(ctx context.Context, job hashJob) error {
	if err := p.failed(); err != nil {
		return err
	}
	p.inflight.Add(1)
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		p.inflight.Done()
		return ctx.Err()
	}
}

// drain waits until every submitted job has been processed.
func (p *hashPool) drain() error {
	p.inflight.Wait()
	return p.failed()
}

// close stops the workers after the queue empties.
func (p *hashPool) close() error {
	close(p.jobs)
	p.workers.Wait()
	return p.failed()
}

func (p *hashPool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *hashPool) failed() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
