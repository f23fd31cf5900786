// Package sweeper runs the periodic retention pass over the persisted
// engine state.
package sweeper

import (
	"context"
	"time"

	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
	"go.uber.org/multierr"
)

// DefaultInterval is how often the sweep runs when unconfigured.
const DefaultInterval = time.Hour

// Task is one named unit of sweep work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Params groups dependencies for the sweep job.
type Params struct {
	Tasks   []Task
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
	// Interval overrides DefaultInterval when positive.
	Interval time.Duration
}

// Job drives the registered tasks on a fixed interval.
type Job struct {
	tasks    []Task
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	interval time.Duration
}

func New(params Params) (*Job, error) {
	if len(params.Tasks) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one sweep task is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.Interval <= 0 {
		params.Interval = DefaultInterval
	}
	return &Job{
		tasks:    params.Tasks,
		logg:     params.Logger,
		metrics:  params.Metrics,
		interval: params.Interval,
	}, nil
}

// Run blocks, executing the tasks every interval until the context is done.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logg.Error(ctx, "sweep pass finished with errors", err)
			}
		}
	}
}

// RunOnce executes every task even when earlier ones fail and returns the
// combined error.
func (j *Job) RunOnce(ctx context.Context) error {
	var combined error
	for _, task := range j.tasks {
		taskCtx := j.logg.WithField(ctx, "job", task.Name)
		start := time.Now()
		err := task.Run(taskCtx)
		j.metrics.ObserveSweepDuration(task.Name, time.Since(start))
		if err != nil {
			j.metrics.IncSweepFailure(task.Name)
			j.logg.Error(taskCtx, "sweep task failed", err)
			combined = multierr.Append(combined, err)
			continue
		}
		j.metrics.IncSweepSuccess(task.Name)
	}
	return combined
}
