package di

import (
	"log/slog"
	"testing"

	"github.com/samber/do/v2"
	"github.com/samber/lo"

	"github.com/reshetovitsme/telegram-pulse/internal/scheduler"
)

func TestSetupRegistersPeriodicTasks(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://messages.example.com")
	t.Setenv("API_TOKEN", "test-token")
	t.Setenv("DATABASE_PATH", ":memory:")

	injector, err := Setup(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		if err := Shutdown(injector); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	sched, err := do.Invoke[*scheduler.Scheduler](injector)
	if err != nil {
		t.Fatalf("invoke scheduler: %v", err)
	}

	names := lo.Map(sched.Status(), func(s scheduler.TaskStatus, _ int) string {
		return s.Name
	})
	for _, want := range []string{"ingestion", "auto-sync", "analytics-aggregation", "cleanup", "health-check"} {
		if !lo.Contains(names, want) {
			t.Fatalf("expected task %q registered, got %v", want, names)
		}
	}
}
