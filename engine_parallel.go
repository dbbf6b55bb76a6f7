package trellis

import (
	"context"
	"runtime"
	"sync"
)

// buildParallel parses and constructs dirty documents on a worker pool.
// Parsing and model construction touch no shared state, so workers need no
// locking; the global scope and linker phases stay serial in Build.
func (e *Engine) buildParallel(ctx context.Context, states []*documentState) error {
	if len(states) == 0 {
		return nil
	}

	numWorkers := min(runtime.NumCPU(), len(states))
	if numWorkers < 1 {
		numWorkers = 1
	}

	work := make(chan *documentState)
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range work {
				e.buildDocument(st)
			}
		}()
	}

	var ctxErr error
feed:
	for _, st := range states {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case work <- st:
		}
	}
	close(work)
	wg.Wait()
	return ctxErr
}
