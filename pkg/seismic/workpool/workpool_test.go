package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunExecutesAllItems(t *testing.T) {
	var count int64
	err := Run(context.Background(), 10, 3, func(ctx context.Context, i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected all 10 items to run, got %d", count)
	}
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	var current, max int64
	err := Run(context.Background(), 20, 4, func(ctx context.Context, i int) error {
		n := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&max)
			if n <= old || atomic.CompareAndSwapInt64(&max, old, n) {
				break
			}
		}
		atomic.AddInt64(&current, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if max > 4 {
		t.Errorf("expected at most 4 concurrent calls, observed %d", max)
	}
}

func TestRunPropagatesFirstError(t *testing.T) {
	wantErr := errors.New("boom")
	err := Run(context.Background(), 5, 5, func(ctx context.Context, i int) error {
		if i == 2 {
			return wantErr
		}
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wantErr to propagate, got %v", err)
	}
}

func TestRunZeroItemsIsNoop(t *testing.T) {
	called := false
	err := Run(context.Background(), 0, 5, func(ctx context.Context, i int) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected fn never called for n=0")
	}
}

func TestSizeClampsToItemCount(t *testing.T) {
	if got := Size(8, 3); got != 3 {
		t.Errorf("Size(8, 3) = %d, want 3", got)
	}
	if got := Size(2, 10); got != 2 {
		t.Errorf("Size(2, 10) = %d, want 2", got)
	}
}
