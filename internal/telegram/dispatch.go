package telegram

import (
	"context"
	"sync"
)

// Dispatcher runs jobs in arrival order per key and in parallel across
// keys. A key's worker exits once its queue is empty.
type Dispatcher struct {
	ctx context.Context
	run func(ctx context.Context, job Job)

	mu     sync.Mutex
	queues map[string][]Job
	wg     sync.WaitGroup
}

// Job is one update bound for one user.
type Job struct {
	Key    string
	Update Update
}

// NewDispatcher creates a dispatcher whose jobs run under ctx.
func NewDispatcher(ctx context.Context, run func(ctx context.Context, job Job)) *Dispatcher {
	return &Dispatcher{
		ctx:    ctx,
		run:    run,
		queues: make(map[string][]Job),
	}
}

// Submit enqueues job behind earlier jobs with the same key.
func (d *Dispatcher) Submit(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, busy := d.queues[job.Key]
	d.queues[job.Key] = append(q, job)
	if busy {
		return
	}

	d.wg.Add(1)
	go d.drain(job.Key)
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.run(d.ctx, job)
	}
}

// Pending returns the number of queued jobs not yet started.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Wait blocks until every worker has exited or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
