package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is a background loop that runs until its context is canceled.
type Task interface {
	Start(ctx context.Context) error
}

// Supervisor owns the pipeline's background loops (queue poll, health
// check, key sweep). It replaces bare global timers: loops are started once
// at boot and stop together on context cancellation.
type Supervisor struct {
	tasks  []Task
	logger *zap.Logger
}

func NewSupervisor(logger *zap.Logger, tasks ...Task) (*Supervisor, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("at least one task is required")
	}
	for _, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("nil task provided")
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Supervisor{
		tasks:  tasks,
		logger: logger,
	}, nil
}

// Start blocks until the context is canceled or a task fails.
func (s *Supervisor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range s.tasks {
		task := s.tasks[i]
		g.Go(func() error {
			return task.Start(groupCtx)
		})
	}

	s.logger.Info("supervisor started", zap.Int("tasks", len(s.tasks)))
	return g.Wait()
}
