package testutil

import (
	"sync"

	dErrors "nebula/pkg/domain-errors"
)

// ConcurrentResult counts the outcomes of RunConcurrent by domain code.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
	// Errs holds every error in goroutine index order; nil for successes.
	Errs []error
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// RunConcurrent starts n goroutines, releases them together and waits for
// all of them.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	errs := make([]error, n)
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			<-gate
			errs[i] = fn(i)
		})
	}
	close(gate)
	wg.Wait()

	r := &ConcurrentResult{Errs: errs}
	for _, err := range errs {
		switch {
		case err == nil:
			r.Successes++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			r.Conflicts++
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			r.NotFounds++
		default:
			r.Errors++
		}
	}
	return r
}
