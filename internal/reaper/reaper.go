// Package reaper removes courts left idle past the configured timeout.
package reaper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ernie/nextup/internal/storage"
)

// Reaper periodically sweeps idle courts. Each sweep uses the same atomic
// deletion primitive as an explicit court delete, so a sweep never races a
// live mutation into a half-deleted state; a request that loses the race
// sees the court as missing on its next step.
type Reaper struct {
	store    *storage.Store
	interval time.Duration
	timeout  time.Duration

	done chan struct{}
	wg   sync.WaitGroup // track goroutine completion for graceful shutdown
}

// New creates a reaper that sweeps every interval and deletes courts whose
// last activity is older than timeout.
func New(store *storage.Store, interval, timeout time.Duration) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (r *Reaper) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.sweepLoop(ctx)
}

// Stop stops the sweep loop and waits for it to exit.
func (r *Reaper) Stop() {
	close(r.done)
	r.wg.Wait()
}

// sweepLoop periodically removes idle courts
func (r *Reaper) sweepLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many courts were deleted.
func (r *Reaper) Sweep(ctx context.Context) int64 {
	cutoff := time.Now().Add(-r.timeout)
	count, err := r.store.ReapIdleCourts(ctx, cutoff)
	if err != nil {
		log.Printf("Error reaping idle courts: %v", err)
		return 0
	}
	if count > 0 {
		log.Printf("Reaped %d idle courts", count)
	}
	return count
}
