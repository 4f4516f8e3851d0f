package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockSweeper struct {
	removed int
	err     error
	calls   []time.Time
}

func (m *mockSweeper) Sweep(_ context.Context, now time.Time) (int, error) {
	m.calls = append(m.calls, now)
	return m.removed, m.err
}

var sweepTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestExecuteSweepSessions(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockSweeper
		want    int
		wantErr bool
	}{
		{"removes expired", &mockSweeper{removed: 3}, 3, false},
		{"nothing expired", &mockSweeper{}, 0, false},
		{"store failure", &mockSweeper{err: errors.New("disk gone")}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			got, err := ExecuteSweepSessions(context.Background(), SweepSessionsDeps{
				Store:  tt.store,
				Logger: zap.New(core),
				Now:    func() time.Time { return sweepTime },
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExecuteSweepSessions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("removed = %d, want %d", got, tt.want)
			}
			if len(tt.store.calls) != 1 || !tt.store.calls[0].Equal(sweepTime) {
				t.Errorf("Sweep calls = %v, want one at %v", tt.store.calls, sweepTime)
			}
			if !tt.wantErr && logs.FilterMessage("sessions_swept").Len() != 1 {
				t.Error("sessions_swept not logged")
			}
		})
	}
}

func TestStartSweeper_InvalidCron(t *testing.T) {
	_, err := StartSweeper(context.Background(), "every tuesday", SweepSessionsDeps{Store: &mockSweeper{}})
	if err == nil {
		t.Error("StartSweeper() error = nil, want invalid cron error")
	}
}

// TestStartSweeper_Stop verifies stop returns once the scheduler has exited.
func TestStartSweeper_Stop(t *testing.T) {
	stop, err := StartSweeper(context.Background(), "", SweepSessionsDeps{Store: &mockSweeper{}})
	if err != nil {
		t.Fatalf("StartSweeper() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop() did not return")
	}
}

func TestNextSweep(t *testing.T) {
	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 2 * * *", time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)},
		{DefaultSweepCron, time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := nextSweep(tt.expr, sweepTime)
			if err != nil {
				t.Fatalf("nextSweep() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("nextSweep() = %v, want %v", got, tt.want)
			}
		})
	}
}
