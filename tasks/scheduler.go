// Package tasks runs the periodic maintenance jobs of the game.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ecopet/ecopet/utils"
)

// Func is one run of a recurring task.
type Func func(ctx context.Context) error

type task struct {
	name  string
	every time.Duration
	fn    Func
}

// Scheduler runs registered tasks on fixed periods until its context is
// canceled. A failing run is logged and retried on the next tick.
type Scheduler struct {
	log   *zap.Logger
	mu    sync.Mutex
	tasks []task
	wg    sync.WaitGroup
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Register adds a task. It must be called before Run.
func (s *Scheduler) Register(name string, every time.Duration, fn Func) error {
	if every <= 0 {
		return fmt.Errorf("task %s: period must be positive, got %s", name, every)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.name == name {
			return fmt.Errorf("task %s already registered", name)
		}
	}
	s.tasks = append(s.tasks, task{name: name, every: every, fn: fn})
	return nil
}

// Run starts one loop per task and blocks until ctx is canceled and every
// loop has returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	tasks := append([]task(nil), s.tasks...)
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.log.Info("scheduler started", zap.Int("tasks", len(tasks)))
	<-ctx.Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.every)
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

func (s *Scheduler) runOnce(ctx context.Context, t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			utils.TaskRunsTotal.WithLabelValues(t.name, "panic").Inc()
			s.log.Error("task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	if err := t.fn(ctx); err != nil {
		utils.TaskRunsTotal.WithLabelValues(t.name, "error").Inc()
		s.log.Error("task failed", zap.String("task", t.name), zap.Error(err))
		return
	}
	utils.TaskRunsTotal.WithLabelValues(t.name, "ok").Inc()
	s.log.Debug("task done", zap.String("task", t.name), zap.Duration("took", time.Since(start)))
}
