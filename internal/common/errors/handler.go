// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler handles job errors with standardized error handling
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolution is what the handler will do with a failed job.
type Resolution struct {
	Throw   bool
	Retries int32
	Error   *BPMNError
}

// Resolve decides between failing with retries and throwing a BPMN error.
func Resolve(job entities.Job, err error) (*StandardError, Resolution) {
	stdErr := FromError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	// job.Retries counts the activation being failed, so what remains is one
	// less. Once nothing remains the error is thrown with its payload.
	retries := min(int32(bpmnErr.Retries), job.Retries-1)
	if retries <= 0 {
		return stdErr, Resolution{Throw: true, Error: bpmnErr}
	}
	return stdErr, Resolution{Retries: retries, Error: bpmnErr}
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr, res := Resolve(job, err)
	h.logError(job, stdErr, res)

	if res.Throw {
		h.throwBPMNError(ctx, client, job, res.Error)
		return
	}
	h.failJobWithRetries(ctx, client, job, res.Error, res.Retries)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	vars, _ := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
		if _, err := withVars.Send(ctx); err != nil {
			h.logger.Error("failed to send fail job command", map[string]interface{}{"jobKey": job.Key, "error": err})
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	vars, _ := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
		if _, err := withVars.Send(ctx); err != nil {
			h.logger.Error("failed to throw error", map[string]interface{}{"jobKey": job.Key, "error": err})
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, res Resolution) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    res.Error.Code,
		"message":          res.Error.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          res.Retries,
		"thrown":           res.Throw,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
