// Package scheduler runs registered tasks at fixed intervals: Clay->HubSpot
// company syncs, cache stats reporting, and anything added over the API.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFunc is the work a scheduled task performs.
type TaskFunc func(ctx context.Context) error

// TaskStatus is the externally visible state of a task.
type TaskStatus struct {
	ID         string        `json:"task_id"`
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"last_run"`
	Running    bool          `json:"running"`
	Runs       int           `json:"runs"`
	ErrorCount int           `json:"error_count"`
}

type task struct {
	id         string
	name       string
	interval   time.Duration
	fn         TaskFunc
	lastRun    time.Time
	running    bool
	runs       int
	errorCount int
}

// Scheduler fires due tasks from a one-second tick loop. A task still
// running when its next slot arrives is skipped, not stacked.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *zap.Logger

	tick time.Duration
	now  func() time.Time
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[string]*task),
		logger: logger,
		tick:   time.Second,
		now:    time.Now,
	}
}

// Add registers a task. Duplicate IDs are rejected.
func (s *Scheduler) Add(id, name string, interval time.Duration, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", id)
	}
	if fn == nil {
		return fmt.Errorf("task %s: function is required", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return fmt.Errorf("task %s already exists", id)
	}

	s.tasks[id] = &task{id: id, name: name, interval: interval, fn: fn}
	s.logger.Info("added scheduler task",
		zap.String("task_id", id),
		zap.Duration("interval", interval),
	)

	return nil
}

func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return fmt.Errorf("task %s does not exist", id)
	}

	delete(s.tasks, id)
	s.logger.Info("removed scheduler task", zap.String("task_id", id))

	return nil
}

// Update changes a task's interval.
func (s *Scheduler) Update(id string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task %s does not exist", id)
	}

	t.interval = interval
	s.logger.Info("updated scheduler task",
		zap.String("task_id", id),
		zap.Duration("interval", interval),
	)

	return nil
}

func (s *Scheduler) Status(id string) (*TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task %s does not exist", id)
	}

	return t.status(), nil
}

// List returns the status of every registered task.
func (s *Scheduler) List() []*TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]*TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		statuses = append(statuses, t.status())
	}

	return statuses
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the tick loop. Starting a running scheduler is an error so
// the API can report it.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)

	s.logger.Info("scheduler started")
	return nil
}

// Stop terminates the tick loop and waits for it to exit. In-flight task
// runs observe the cancelled context.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("scheduler is not running")
	}

	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.running {
			continue
		}
		if !t.lastRun.IsZero() && now.Sub(t.lastRun) < t.interval {
			continue
		}

		t.running = true
		go s.runTask(ctx, t)
	}
}

func (s *Scheduler) runTask(ctx context.Context, t *task) {
	s.logger.Info("running scheduler task", zap.String("task_id", t.id))

	err := t.fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	t.running = false
	t.lastRun = s.now()
	t.runs++

	if err != nil {
		t.errorCount++
		s.logger.Error("scheduler task failed",
			zap.String("task_id", t.id),
			zap.Int("error_count", t.errorCount),
			zap.Error(err),
		)
	}
}

func (t *task) status() *TaskStatus {
	return &TaskStatus{
		ID:         t.id,
		Name:       t.name,
		Interval:   t.interval,
		LastRun:    t.lastRun,
		Running:    t.running,
		Runs:       t.runs,
		ErrorCount: t.errorCount,
	}
}
