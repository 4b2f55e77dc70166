// Package scheduler runs named periodic tasks. Each task ticks on its own
// interval; a tick is skipped when the previous run of the same task is
// still going, and a failing task never stops the schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// TaskFunc is one unit of scheduled work.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	interval time.Duration
	run      TaskFunc

	running   atomic.Bool
	mu        sync.Mutex
	lastRun   time.Time
	lastError error
}

// TaskStatus is a snapshot of one task.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

// Scheduler owns a set of periodic tasks.
type Scheduler struct {
	logger *slog.Logger

	mu     sync.Mutex
	tasks  []*task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a named task. Registration after Start has no effect on the
// running schedule.
func (s *Scheduler) Register(name string, interval time.Duration, run TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &task{name: name, interval: interval, run: run})
}

// Start launches one ticker goroutine per task. It returns immediately;
// tasks run until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	tasks := s.tasks
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.logger.Info("scheduler started", slog.Int("tasks", len(tasks)))
}

// Stop cancels all task loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Status reports a snapshot of every registered task.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		status := TaskStatus{
			Name:     t.name,
			Interval: t.interval,
			Running:  t.running.Load(),
			LastRun:  t.lastRun,
		}
		if t.lastError != nil {
			status.LastError = t.lastError.Error()
		}
		t.mu.Unlock()
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

// runOnce executes the task unless its previous run is still in flight.
func (s *Scheduler) runOnce(ctx context.Context, t *task) {
	if !t.running.CompareAndSwap(false, true) {
		s.logger.Warn("task still running, skipping tick", slog.String("task", t.name))
		return
	}
	defer t.running.Store(false)

	start := time.Now()
	err := t.run(ctx)

	t.mu.Lock()
	t.lastRun = start
	t.lastError = err
	t.mu.Unlock()

	if err != nil {
		jobErr := &apperrors.JobError{Job: t.name, Err: err}
		s.logger.Error("scheduled task failed",
			slog.String("task", t.name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", jobErr),
		)
		return
	}
	s.logger.Debug("scheduled task complete",
		slog.String("task", t.name),
		slog.Duration("elapsed", time.Since(start)),
	)
}
