package publishanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"opportunity-workers/internal/common/camunda"
	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
)

const TaskType = "publish-analysis"

type Handler struct {
	config       *Config
	service      *Service
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	Config   *Config
	Indexer  DocumentIndexer
	Notifier Notifier
	Logger   logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Indexer == nil {
		return nil, fmt.Errorf("%s requires a document indexer", TaskType)
	}
	if cfg.NotifyEnabled && opts.Notifier == nil {
		return nil, fmt.Errorf("%s has notifications enabled but no notifier", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config: cfg,
		service: NewService(ServiceDependencies{
			Indexer:  opts.Indexer,
			Notifier: opts.Notifier,
			Logger:   log,
		}, cfg),
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	_ = h.HandleJob(context.Background(), client, job)
}

func (h *Handler) HandleJob(ctx context.Context, client worker.JobClient, job entities.Job) error {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
	}

	execCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(execCtx, &input)
	if err != nil {
		return h.fail(ctx, client, job, err)
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err})
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	return h.service.Publish(ctx, input)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	stdErr := errors.FromError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
	return stdErr
}
