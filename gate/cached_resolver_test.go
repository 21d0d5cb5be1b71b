package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingResolver struct {
	calls int
	value string
	err   error
}

func (r *countingResolver) Resolve(_ context.Context, _ uint) (string, error) {
	r.calls++
	return r.value, r.err
}

func TestCachedResolver_CachesValue(t *testing.T) {
	inner := &countingResolver{value: "customer"}
	cached := NewCachedResolver[uint, string](inner, 5*time.Minute)

	for i := 0; i < 3; i++ {
		v, err := cached.Resolve(context.Background(), 1)
		if err != nil || v != "customer" {
			t.Fatalf("unexpected result %q %v", v, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestCachedResolver_Expiry(t *testing.T) {
	inner := &countingResolver{value: "customer"}
	cached := NewCachedResolver[uint, string](inner, time.Minute)
	now := time.Now()
	cached.now = func() time.Time { return now }

	_, _ = cached.Resolve(context.Background(), 1)
	inner.value = "admin"
	now = now.Add(2 * time.Minute)

	v, _ := cached.Resolve(context.Background(), 1)
	if v != "admin" {
		t.Errorf("expected refreshed 'admin', got %q", v)
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := &countingResolver{value: "customer"}
	cached := NewCachedResolver[uint, string](inner, 5*time.Minute)
	_, _ = cached.Resolve(context.Background(), 1)

	inner.value = "courier"
	cached.Invalidate(1)
	if v, _ := cached.Resolve(context.Background(), 1); v != "courier" {
		t.Errorf("expected 'courier' after invalidate, got %q", v)
	}

	inner.value = "admin"
	cached.InvalidateAll()
	if v, _ := cached.Resolve(context.Background(), 1); v != "admin" {
		t.Errorf("expected 'admin' after invalidate all, got %q", v)
	}
}

func TestCachedResolver_ErrorsNotCached(t *testing.T) {
	inner := &countingResolver{err: errors.New("db down")}
	cached := NewCachedResolver[uint, string](inner, 5*time.Minute)

	if _, err := cached.Resolve(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	inner.value = "customer"
	if v, err := cached.Resolve(context.Background(), 1); err != nil || v != "customer" {
		t.Fatalf("expected recovery after error, got %q %v", v, err)
	}
}
