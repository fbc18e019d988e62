package executequery

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"opportunity-workers/internal/common/camunda"
	"opportunity-workers/internal/common/database"
	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
	"opportunity-workers/internal/common/validation"
	"opportunity-workers/internal/synthesis"
)

const (
	TaskType = "execute-query"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	_ = h.HandleJob(context.Background(), client, job)
}

func (h *Handler) HandleJob(ctx context.Context, client worker.JobClient, job entities.Job) error {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
	}
	input, err := ParseInput(variables)
	if err != nil {
		return h.fail(ctx, client, job, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(execCtx, input)
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

// ParseInput accepts the query as sql_query, or as query holding either the
// raw statement or a serialized {"sql_query": ...} object.
func ParseInput(variables map[string]interface{}) (*Input, error) {
	if q, ok := variables["sql_query"].(string); ok && strings.TrimSpace(q) != "" {
		return &Input{SQLQuery: q}, nil
	}

	switch q := variables["query"].(type) {
	case string:
		trimmed := strings.TrimSpace(q)
		if strings.HasPrefix(trimmed, "{") {
			var wrapped Input
			if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
				return nil, errors.NewInvalidInputError(fmt.Sprintf("query is not a valid contract: %v", err))
			}
			if strings.TrimSpace(wrapped.SQLQuery) == "" {
				return nil, errors.NewInvalidInputError("query contract has no sql_query")
			}
			return &wrapped, nil
		}
		if trimmed != "" {
			return &Input{SQLQuery: q}, nil
		}
	case map[string]interface{}:
		if inner, ok := q["sql_query"].(string); ok && strings.TrimSpace(inner) != "" {
			return &Input{SQLQuery: inner}, nil
		}
	}

	return nil, errors.NewInvalidInputError("sql_query is required")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}

	if result := validation.ValidateQueryContract(input.SQLQuery); !result.Valid {
		return nil, errors.NewQueryContractInvalidError(strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := synthesis.ValidateSafety(input.SQLQuery); err != nil {
		var safetyErr *synthesis.SafetyError
		if stderrors.As(err, &safetyErr) {
			return nil, errors.NewQuerySafetyRejectedError(safetyErr.Pattern)
		}
		return nil, errors.NewQuerySafetyRejectedError(err.Error())
	}

	start := time.Now()
	rows, columns, err := database.QueryMaps(ctx, h.db, input.SQLQuery)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.NewQueryTimeoutError(h.config.Timeout)
		}
		if isConnectionError(err) {
			return nil, errors.NewDatabaseConnectionFailedError(err)
		}
		return nil, errors.NewQueryExecutionFailedError(err)
	}
	elapsed := time.Since(start).Milliseconds()

	size := 0
	if encoded, err := json.Marshal(rows); err == nil {
		size = len(encoded)
	}
	if size > h.config.MaxResultBytes {
		h.logger.Warn("query result exceeds size threshold", map[string]interface{}{
			"resultBytes": size,
			"threshold":   h.config.MaxResultBytes,
			"rowCount":    len(rows),
		})
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"rowCount":   len(rows),
		"durationMs": elapsed,
	})

	return &Output{
		Rows:               rows,
		Columns:            columns,
		RowCount:           len(rows),
		QueryExecutionTime: elapsed,
		ResultBytes:        size,
	}, nil
}

func isConnectionError(err error) bool {
	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	stdErr := errors.FromError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
	return stdErr
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
