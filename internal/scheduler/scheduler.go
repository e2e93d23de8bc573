package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Task is one maintenance step run on every tick.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler periodically runs maintenance tasks, such as folding the history
// database's write-ahead log back into the main file.
type Scheduler struct {
	scheduler *gocron.Scheduler
	tasks     []Task
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		tasks:     tasks,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.tasks) == 0 || s.interval <= 0 {
		s.logger.Info("no maintenance scheduled", "tasks", len(s.tasks), "interval", s.interval.String())
		return nil
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	_, err := s.scheduler.Every(seconds).Seconds().WaitForSchedule().Do(func() {
		_ = s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce runs every task in order. A failing task is logged and does not stop
// the ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Debug("running maintenance job")

	var errs []error
	for _, t := range s.tasks {
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := t.Run(tctx)
		cancel()
		if err != nil {
			s.logger.Error("maintenance task failed", "task", t.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
