package session

import (
	"context"
	"sync"
	"testing"

	"flashbox/internal/application/flash"
	domain "flashbox/internal/domain/flash"
)

// TestBind_FlashRoundTrip verifies a flash Store runs on a bound session and
// that two sessions do not see each other's messages.
func TestBind_FlashRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	alice := flash.New[any](Bind(store, "alice"), flash.Config{}, flash.Deps{})
	bob := flash.New[any](Bind(store, "bob"), flash.Config{}, flash.Deps{})

	if err := alice.Append(ctx, domain.KindSuccess, "Saved", nil, nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if got, _ := bob.Retrieve(ctx, domain.All(), nil); got != nil {
		t.Errorf("bob sees %v, want nil", got)
	}
	got, err := alice.RetrieveOnce(ctx, domain.All(), nil)
	if err != nil || len(got) != 1 || got[0].Text != "Saved" {
		t.Fatalf("RetrieveOnce() = %v, %v", got, err)
	}

	if _, found, _ := store.Get(ctx, "alice", flash.DefaultStorageKey); found {
		t.Error("drained list still stored")
	}
}

func TestBind_ID(t *testing.T) {
	if id := Bind(NewMemoryStore(0), "abc").ID(); id != "abc" {
		t.Errorf("ID() = %q, want abc", id)
	}
}

func TestLockTable_SameIDSameLock(t *testing.T) {
	locks := NewLockTable(16)
	if locks.For("abc") != locks.For("abc") {
		t.Error("For() returned different locks for the same id")
	}
}

func TestLockTable_DefaultStripes(t *testing.T) {
	if n := len(NewLockTable(0).stripes); n != DefaultLockStripes {
		t.Errorf("stripes = %d, want %d", n, DefaultLockStripes)
	}
}

// TestLockTable_SerializesFlashStores verifies per-request Stores sharing a
// striped lock do not lose appends.
func TestLockTable_SerializesFlashStores(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	locks := NewLockTable(4)
	const n = 40

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s := flash.New[any](Bind(store, "shared"), flash.Config{}, flash.Deps{Locker: locks.For("shared")})
			if err := s.Append(ctx, domain.KindNotice, "hello", nil, nil); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	s := flash.New[any](Bind(store, "shared"), flash.Config{}, flash.Deps{})
	got, err := s.Retrieve(ctx, domain.All(), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != n {
		t.Errorf("got %d messages, want %d", len(got), n)
	}
}
