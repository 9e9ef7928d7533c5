package testing

import (
	"fmt"
	"sync/atomic"
	"testing"
)

func TestGoroutineTestCollects(t *testing.T) {
	var ran atomic.Int32

	gt := NewGoroutineTest(t)
	for i := 0; i < 8; i++ {
		i := i
		gt.Go(func() error {
			ran.Add(1)
			if i < 0 {
				return fmt.Errorf("unexpected negative index: %d", i)
			}
			return nil
		})
	}
	gt.Wait()

	if ran.Load() != 8 {
		t.Errorf("expected 8 goroutines to run, got %d", ran.Load())
	}
}
