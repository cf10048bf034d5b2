package catalog

import (
	"context"
	"testing"
	"time"

	"mercator-hq/predicate/pkg/config"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		ttl         time.Duration
		wantRunning bool
		wantError   bool
	}{
		{"every fifteen minutes", "*/15 * * * *", time.Hour, true, false},
		{"descriptor", "@every 5m", time.Hour, true, false},
		{"empty schedule", "", time.Hour, false, false},
		{"invalid schedule", "every tuesday", time.Hour, false, true},
		{"zero ttl", "@hourly", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCatalog(t)
			s := NewScheduler(c, &config.CatalogConfig{PruneSchedule: tt.schedule, CacheTTL: tt.ttl})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				next := s.NextRun()
				if next == nil || !next.After(time.Now().Add(-time.Second)) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
				if err := s.Start(ctx); err == nil {
					t.Error("second Start() expected error")
				}
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("IsRunning() = true after Stop()")
			}
		})
	}
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	c, _ := newTestCatalog(t)
	s := NewScheduler(c, &config.CatalogConfig{PruneSchedule: "@hourly", CacheTTL: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_Prune(t *testing.T) {
	c, clk := newTestCatalog(t)
	mustPut(t, c, positiveDoc, smallDoc)
	if _, err := c.Compose(context.Background(), "positive", "small"); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	s := NewScheduler(c, &config.CatalogConfig{PruneSchedule: "@hourly", CacheTTL: time.Hour})
	s.prune()
	if n := c.CacheLen(); n != 1 {
		t.Fatalf("CacheLen() = %d after early prune, want 1", n)
	}

	clk.Advance(2 * time.Hour)
	s.prune()
	if n := c.CacheLen(); n != 0 {
		t.Errorf("CacheLen() = %d after prune, want 0", n)
	}
}
