package experiment

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/odekit/internal/config"
)

// Batch runs independent configurations on a bounded number of goroutines.
// Every configuration gets its own problem and integrator instances.
type Batch struct {
	workers int
	opts    []Option
}

func NewBatch(workers int, opts ...Option) *Batch {
	return &Batch{workers: max(workers, 1), opts: opts}
}

// Run returns one result and one error per configuration, in input order.
// Cancelling ctx stops pending runs and interrupts the running ones.
func (b *Batch) Run(ctx context.Context, cfgs []*config.Config) ([]*Result, []error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(b.workers, len(cfgs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = Run(ctx, cfgs[idx], b.opts...)
			}
		}()
	}

	for i := range cfgs {
		if ctx.Err() != nil {
			errs[i] = fmt.Errorf("not started: %w", ctx.Err())
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, errs
}
