package worklist

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

type countingSource struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (s *countingSource) Load(context.Context) ([]WorkItem, error) {
	n := s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return []WorkItem{{Index: 0, Reference: "load-" + string(rune('0'+n))}}, nil
}

func TestProviderMemoizesPerSession(t *testing.T) {
	src := &countingSource{}
	p := NewProvider(src)
	ctx := context.Background()

	a1, err := p.Worklist(ctx, "a")
	if err != nil {
		t.Fatalf("Worklist: %v", err)
	}
	a2, _ := p.Worklist(ctx, "a")
	if a1[0].Reference != a2[0].Reference {
		t.Fatalf("session a saw %q then %q", a1[0].Reference, a2[0].Reference)
	}
	b, _ := p.Worklist(ctx, "b")
	if b[0].Reference == a1[0].Reference {
		t.Fatalf("session b reused session a's list")
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("loads = %d, want 2", got)
	}

	p.Forget("a")
	a3, _ := p.Worklist(ctx, "a")
	if a3[0].Reference == a1[0].Reference {
		t.Fatalf("Forget kept the old list")
	}
}

func TestProviderReturnsCopies(t *testing.T) {
	p := NewProvider(&countingSource{})
	items, _ := p.Worklist(context.Background(), "s")
	items[0].Reference = "mutated"

	again, _ := p.Worklist(context.Background(), "s")
	if again[0].Reference == "mutated" {
		t.Fatal("caller mutation leaked into the memo")
	}
}

func TestProviderCollapsesConcurrentLoads(t *testing.T) {
	src := &countingSource{gate: make(chan struct{})}
	p := NewProvider(src)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Worklist(context.Background(), "s"); err != nil {
				t.Errorf("Worklist: %v", err)
			}
		}()
	}
	for src.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(src.gate)
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Fatalf("loads = %d, want 1", got)
	}
}

func TestProviderDoesNotCacheFailures(t *testing.T) {
	src := &countingSource{err: ErrDataUnavailable}
	p := NewProvider(src)

	if _, err := p.Worklist(context.Background(), "s"); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("error = %v, want ErrDataUnavailable", err)
	}
	src.err = nil
	if _, err := p.Worklist(context.Background(), "s"); err != nil {
		t.Fatalf("Worklist after recovery: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("loads = %d, want 2", got)
	}
}
