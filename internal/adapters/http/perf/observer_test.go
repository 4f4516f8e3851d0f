package perf

import (
	"context"
	"testing"
	"time"

	"flashbox/internal/application/flash"
	domain "flashbox/internal/domain/flash"
)

type mapSession map[string][]byte

func (m mapSession) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapSession) Set(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapSession) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestCollector_OnEvent(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()

	c.OnEvent(context.Background(), flash.Event{
		Type:      flash.EventRetrieve,
		Duration:  1500 * time.Microsecond,
		Timestamp: now,
	})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.FlashOps) != 1 {
		t.Fatalf("FlashOps len = %d, want 1", len(snap.FlashOps))
	}
	if got := snap.FlashOps[0]; got.Path != "flash.retrieve" || got.MaxMs != 1.5 {
		t.Errorf("FlashOps[0] = %+v, want flash.retrieve at 1.5ms", got)
	}
}

// TestCollector_ObservesStore verifies a Store reports each operation.
func TestCollector_ObservesStore(t *testing.T) {
	ctx := context.Background()
	c := NewCollector(10)
	s := flash.New[any](mapSession{}, flash.Config{}, flash.Deps{Observer: c})

	if err := s.Append(ctx, domain.KindNotice, "hello", nil, nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := s.RetrieveOnce(ctx, domain.All(), nil); err != nil {
		t.Fatalf("RetrieveOnce() error = %v", err)
	}

	if c.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", c.TotalRecorded())
	}
	snap := c.Snapshot(time.Now().Add(-time.Minute), 10)
	paths := map[string]bool{}
	for _, op := range snap.FlashOps {
		paths[op.Path] = true
	}
	if !paths["flash.append"] || !paths["flash.retrieve"] {
		t.Errorf("FlashOps = %+v, want append and retrieve", snap.FlashOps)
	}
}
