// Package workerpool wraps github.com/panjf2000/ants/v2 behind a
// small Submit/Wait surface shared by the Clone Executor and the
// Blame Engine. Generalized from the teacher's
// infrastructure/concurrency/worker_pool.go, stripped of the
// clone-specific job/result types (cloning.CloneJob, cloning.JobResult,
// the JobManager priority queue) so it only carries what both
// consumers need: bounded concurrency, panic isolation, and a
// WaitGroup-backed barrier.
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/repofleet/gitfleet/internal/domain/shared"
)

// DefaultExpiry mirrors the teacher's worker idle-expiry window.
const DefaultExpiry = 10 * time.Second

// Pool bounds concurrent execution of arbitrary work via an
// underlying ants.Pool.
type Pool struct {
	pool   *ants.Pool
	logger shared.Logger
	wg     sync.WaitGroup
}

// New creates a pool with size workers (size<=0 defaults to
// 2x NumCPU, matching the teacher's default).
func New(size int, logger shared.Logger) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU() * 2
	}

	ap, err := ants.NewPool(size, ants.WithOptions(ants.Options{
		ExpiryDuration: DefaultExpiry,
		PreAlloc:       true,
		PanicHandler: func(r any) {
			logger.Error("worker panic", shared.StringField("panic", fmt.Sprintf("%v", r)))
		},
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Pool{pool: ap, logger: logger}, nil
}

// Submit runs fn on the pool. It blocks briefly only if the pool is
// momentarily saturated; ants queues the task rather than rejecting
// it outright unless the pool has been released.
func (p *Pool) Submit(fn func()) error {
	if p.pool.IsClosed() {
		return fmt.Errorf("worker pool is closed")
	}
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		fn()
	})
	if err != nil {
		p.wg.Done()
	}
	return err
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Release stops accepting new work and frees pool resources. Call
// after Wait.
func (p *Pool) Release() {
	p.pool.Release()
}

// Running reports the number of currently executing workers, used by
// the TUI to render live concurrency.
func (p *Pool) Running() int {
	return p.pool.Running()
}
