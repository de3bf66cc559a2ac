package stepper

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool runs an operation over a fixed list of inputs with bounded
// concurrency, order-preserving results. Grounded verbatim on the
// teacher's executor.WorkerPool.ExecuteParallel, keeping its interface{}
// inputs (the stepper passes patch entities) and given
// a stdlib context.Context for the barrier-cancellation spec §5 requires
// ("a run may be cancelled between substeps... the scheduler checks at
// each barrier").
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool builds a pool of workerCount goroutines (NumCPU if <= 0),
// matching spec §6's `workers` config option (0/absent = available cores).
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// ExecuteParallel runs operation on every input and waits until every input
// has been handled, then returns the error of the lowest-index failed input
// (if any) — no in-flight work is left running past a barrier. Once ctx is
// cancelled, inputs not yet started record ctx.Err() instead of running.
func (p *WorkerPool) ExecuteParallel(ctx context.Context, inputs []interface{}, operation func(context.Context, interface{}) error) error {
	if len(inputs) == 0 {
		return nil
	}

	errs := make([]error, len(inputs))
	jobs := make(chan int, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < p.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					errs[idx] = ctx.Err()
					continue
				}
				errs[idx] = operation(ctx, inputs[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("stepper: patch-parallel execution failed at index %d: %w", i, err)
		}
	}
	return nil
}

// WorkerCount returns the configured concurrency width.
func (p *WorkerPool) WorkerCount() int { return p.workerCount }
