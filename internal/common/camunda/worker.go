package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"opportunity-workers/internal/common/logger"
)

// JobHandler processes one job. The returned error is for instrumentation
// only; the handler has already completed or failed the job itself.
type JobHandler interface {
	HandleJob(ctx context.Context, client worker.JobClient, job entities.Job) error
}

// JobTracker wraps a job in a span and records its outcome.
type JobTracker interface {
	TrackJob(ctx context.Context, taskType string, jobKey int64) (context.Context, func(err error))
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// Instrument adapts handler to the Zeebe handler signature. A panic in the
// handler is logged and reported to the tracker as an error.
func Instrument(taskType string, handler JobHandler, tracker JobTracker, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		ctx, finish := tracker.TrackJob(context.Background(), taskType, job.GetKey())

		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
				log.Error("Handler panicked", map[string]interface{}{
					"taskType": taskType,
					"jobKey":   job.GetKey(),
					"panic":    fmt.Sprint(r),
				})
			}
			finish(err)
		}()

		err = handler.HandleJob(ctx, client, job)
	}
}

// StartWorker opens a job worker for opts.TaskType.
func StartWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, tracker JobTracker, log logger.Logger) worker.JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(Instrument(opts.TaskType, handler, tracker, log)).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return jobWorker
}

// CompleteJob completes job with variables encoded as a JSON object.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, variables interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(variables)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}
