package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

func samplePlan() *scenario.Plan {
	return &scenario.Plan{Name: "p", Actions: []scenario.Action{{Name: "a", Probability: 1}}}
}

func TestInMemory_GetOrCompute_DeduplicatesConcurrentSameKey(t *testing.T) {
	c := NewInMemory(16)
	var calls atomic.Int32

	fn := func() (*scenario.Plan, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return samplePlan(), nil
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute("same-key", fn)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected fn to run once, got %d", got)
	}
}

func TestInMemory_GetOrCompute_ErrorIsNotCached(t *testing.T) {
	c := NewInMemory(16)
	var calls atomic.Int32

	_, err := c.GetOrCompute("k", func() (*scenario.Plan, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	_, err = c.GetOrCompute("k", func() (*scenario.Plan, error) {
		calls.Add(1)
		return samplePlan(), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected fn to run twice (error should not be cached), got %d", got)
	}
}

func TestInMemory_GetOrCompute_PanicDoesNotBlockWaiters(t *testing.T) {
	c := NewInMemory(16)
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute("panic-key", func() (*scenario.Plan, error) {
				calls.Add(1)
				<-release
				panic("boom")
			})
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			t.Fatalf("expected panic converted into error")
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single in-flight execution, got %d", got)
	}
}

func TestInMemory_StopsStoringWhenFull(t *testing.T) {
	c := NewInMemory(1)

	for _, key := range []string{"one", "two"} {
		p, err := c.GetOrCompute(key, func() (*scenario.Plan, error) { return samplePlan(), nil })
		if err != nil || p == nil {
			t.Fatalf("expected plan for %s, got %v %v", key, p, err)
		}
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("expected cache to hold 1 plan, got %d", got)
	}
}
