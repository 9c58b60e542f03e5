package web

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/actionsum/tasktrack/internal/config"
	"github.com/actionsum/tasktrack/internal/database"
	"github.com/actionsum/tasktrack/internal/models"
)

func TestNewServerAddress(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	if err := cfg.SetWebPort(8123); err != nil {
		t.Fatalf("SetWebPort() error: %v", err)
	}

	if got := NewServer(cfg, f.repo).GetAddress(); got != "localhost:8123" {
		t.Errorf("GetAddress() = %s, want localhost:8123", got)
	}
}

func TestServerPrune(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{45 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		err := f.repo.CreateActivityLog(&models.ActivityLog{
			ProjectID:    f.project.ID,
			TaskID:       f.task.ID,
			Timestamp:    now.Add(-age),
			ActivityJSON: `{"minutes":[]}`,
		})
		if err != nil {
			t.Fatalf("CreateActivityLog() error: %v", err)
		}
	}

	cfg := config.Default()
	if n, err := NewServer(cfg, f.repo).Prune(now); err != nil || n != 0 {
		t.Errorf("Prune() without retention = %d, %v, want 0", n, err)
	}

	cfg.SetRetention(30 * 24 * time.Hour)
	n, err := NewServer(cfg, f.repo).Prune(now)
	if err != nil || n != 2 {
		t.Fatalf("Prune() = %d, %v, want 2", n, err)
	}

	left, _ := f.repo.ListActivityLogs(database.ActivityQuery{Since: now.Add(-365 * 24 * time.Hour)})
	if len(left) != 1 {
		t.Errorf("blocks left = %d, want 1", len(left))
	}
}

func TestServerStartAfterShutdown(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	cfg.SetRetention(time.Hour)
	srv := NewServer(cfg, f.repo)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error: %v", err)
	}
	if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start() after Shutdown = %v, want ErrServerClosed", err)
	}
}
