package testing

import (
	"sync"
	"testing"
)

// GoroutineTest runs functions on goroutines and reports their errors on the
// test goroutine.
//
// t.Fatal and t.FailNow must not be called from a goroutine other than the
// test's own: they call runtime.Goexit, which only stops the calling
// goroutine. Functions return errors instead.
//
//	gt := testing.NewGoroutineTest(t)
//	defer gt.Wait()
//
//	gt.Go(func() error {
//	    if got := agg.Count(); got != want {
//	        return fmt.Errorf("got %d, want %d", got, want)
//	    }
//	    return nil
//	})
type GoroutineTest struct {
	t  testing.TB
	wg sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t testing.TB) *GoroutineTest {
	return &GoroutineTest{t: t}
}

// Go runs fn in a goroutine and records its error, if any.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait waits for all goroutines and fails the test if any of them failed.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()
	gt.wg.Wait()

	gt.mu.Lock()
	defer gt.mu.Unlock()
	if len(gt.errs) == 0 {
		return
	}
	gt.t.Errorf("goroutine test failed with %d error(s):", len(gt.errs))
	for i, err := range gt.errs {
		gt.t.Errorf("  [%d] %v", i+1, err)
	}
	gt.t.FailNow()
}
