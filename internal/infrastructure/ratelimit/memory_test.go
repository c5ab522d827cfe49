package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreReserveOpensAndClosesWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	if _, ok, err := store.Reserve(ctx, "tenant:a", now, 300*time.Second); err != nil || !ok {
		t.Fatalf("fresh key must reserve, got ok=%v err=%v", ok, err)
	}

	retryAfter, ok, err := store.Reserve(ctx, "tenant:a", now.Add(100*time.Second), 300*time.Second)
	if err != nil || ok {
		t.Fatalf("open window must reject, got ok=%v err=%v", ok, err)
	}
	if retryAfter != 200*time.Second {
		t.Fatalf("retryAfter = %s, want 200s", retryAfter)
	}

	if _, ok, _ := store.Reserve(ctx, "tenant:a", now.Add(301*time.Second), 300*time.Second); !ok {
		t.Fatalf("elapsed window must reserve again")
	}
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, ok, _ := store.Reserve(ctx, "tenant:a", now, 300*time.Second); !ok {
		t.Fatalf("reserve tenant:a")
	}
	if _, ok, _ := store.Reserve(ctx, "tenant:b", now, 300*time.Second); !ok {
		t.Fatalf("tenant:b must not see tenant:a's window")
	}
}

func TestMemoryStoreRollbackReleasesWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, ok, _ := store.Reserve(ctx, "tenant:a", now, 300*time.Second); !ok {
		t.Fatalf("reserve")
	}
	if err := store.Rollback(ctx, "tenant:a", now); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, ok, _ := store.Reserve(ctx, "tenant:a", now.Add(time.Second), 300*time.Second); !ok {
		t.Fatalf("rolled-back window must be reservable immediately")
	}
}

// Rolling back a stale reservation must not release a newer one.
func TestMemoryStoreRollbackIgnoresStaleReservation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := time.Now().UTC()

	if _, ok, _ := store.Reserve(ctx, "tenant:a", first, time.Second); !ok {
		t.Fatalf("first reserve")
	}
	second := first.Add(2 * time.Second)
	if _, ok, _ := store.Reserve(ctx, "tenant:a", second, time.Second); !ok {
		t.Fatalf("second reserve after expiry")
	}

	if err := store.Rollback(ctx, "tenant:a", first); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, ok, _ := store.Reserve(ctx, "tenant:a", second.Add(100*time.Millisecond), time.Minute); ok {
		t.Fatalf("stale rollback must not release the newer reservation")
	}
}

// The reservation is check-and-write under one lock: many goroutines
// racing for the same key inside one window admit exactly one.
func TestMemoryStoreConcurrentReserveAdmitsOne(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	const racers = 50
	start := make(chan struct{})
	admitted := make(chan bool, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok, err := store.Reserve(ctx, "tenant:a", now, 300*time.Second)
			if err != nil {
				t.Errorf("reserve: %v", err)
			}
			admitted <- ok
		}()
	}
	close(start)
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("want exactly 1 admitted reservation, got %d", count)
	}
}
