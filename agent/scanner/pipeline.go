package scanner

import (
	"context"
	"math/rand/v2"
	"net/netip"
	"sync"
	"time"
)

// ScanJob describes a single address to process.
type ScanJob struct {
	Addr   netip.Addr
	Source string
}

// PoolConfig controls the host worker pool.
type PoolConfig struct {
	Workers int
	// MaxJitter staggers worker start-up by a random delay up to this value.
	// Zero starts all workers immediately.
	MaxJitter time.Duration
}

// StartHostPool starts cfg.Workers goroutines that consume jobs, run fn on
// each and emit its result on the returned channel. The channel is closed
// when all workers exit (jobs closed and drained) or ctx is done.
func StartHostPool(ctx context.Context, cfg PoolConfig, jobs <-chan ScanJob, fn func(context.Context, ScanJob) HostResult) <-chan HostResult {
	out := make(chan HostResult)
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			// staggered startup to avoid thundering herd
			if cfg.MaxJitter > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(rand.N(cfg.MaxJitter)):
				}
			}
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-jobs:
					if !ok {
						return
					}
					res := fn(ctx, j)
					select {
					case <-ctx.Done():
						return
					case out <- res:
					}
				}
			}
		}()
	}

	// close output when workers finish
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
