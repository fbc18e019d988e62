// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodePromptNotFound ErrorCode = "PROMPT_NOT_FOUND"

	ErrCodeLLMInvocationFailed ErrorCode = "LLM_INVOCATION_FAILED"
	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"

	ErrCodeQueryExtractionFailed ErrorCode = "QUERY_EXTRACTION_FAILED"
	ErrCodeQuerySafetyRejected   ErrorCode = "QUERY_SAFETY_REJECTED"
	ErrCodeQueryContractInvalid  ErrorCode = "QUERY_CONTRACT_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeAnalysisIndexFailed       ErrorCode = "ANALYSIS_INDEX_FAILED"
	ErrCodeNotificationPublishFailed ErrorCode = "NOTIFICATION_PUBLISH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the internal error representation.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key that is surfaced as a process variable when the
// error reaches the engine.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Type
// ==========================

// BPMNError is the representation sent to Camunda.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables flattens the error into process variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPromptNotFoundError(promptID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePromptNotFound,
		Message:   "Prompt template not found in registry",
		Details:   fmt.Sprintf("promptId: %s", promptID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMInvocationFailedError is raised once the invoker has exhausted its attempts.
func NewLLMInvocationFailedError(attempts int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMInvocationFailed,
		Message:   "Model invocation failed",
		Details:   fmt.Sprintf("attempts: %d, error: %s", attempts, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Model invocation timeout",
		Details:   "invocation exceeded the job timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryExtractionFailedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExtractionFailed,
		Message:   "No usable query in model response",
		Details:   reason,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuerySafetyRejectedError is terminal: the same prompt is likely to
// produce the same statement again.
func NewQuerySafetyRejectedError(pattern string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuerySafetyRejected,
		Message:   "Generated query rejected by safety check",
		Details:   fmt.Sprintf("pattern: %s", pattern),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryContractInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryContractInvalid,
		Message:   "Query result does not match the output contract",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAnalysisIndexFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisIndexFailed,
		Message:   "Indexing analysis document failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationPublishFailed,
		Message:   "Notification publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:              "INVALID_INPUT",
	ErrCodePromptNotFound:            "PROMPT_NOT_FOUND",
	ErrCodeLLMInvocationFailed:       "LLM_INVOCATION_FAILED",
	ErrCodeLLMTimeout:                "LLM_TIMEOUT",
	ErrCodeQueryExtractionFailed:     "QUERY_EXTRACTION_FAILED",
	ErrCodeQuerySafetyRejected:       "QUERY_SAFETY_REJECTED",
	ErrCodeQueryContractInvalid:      "QUERY_CONTRACT_INVALID",
	ErrCodeDatabaseConnectionFailed:  "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:      "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:              "QUERY_TIMEOUT",
	ErrCodeAnalysisIndexFailed:       "ANALYSIS_INDEX_FAILED",
	ErrCodeNotificationPublishFailed: "NOTIFICATION_PUBLISH_FAILED",
}

// GetRetryCount returns the recommended engine retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeAnalysisIndexFailed,
		ErrCodeNotificationPublishFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeQueryExtractionFailed:
		return 2

	// The invoker already retried in-process.
	case ErrCodeLLMInvocationFailed,
		ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// Metadata is carried into the error variables.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// FromError returns the StandardError wrapped anywhere in err's chain, or an
// INTERNAL_ERROR describing err.
func FromError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "PROMPT"):
		return "AI"
	case strings.Contains(codeStr, "EXTRACTION") || strings.Contains(codeStr, "SAFETY") || strings.Contains(codeStr, "CONTRACT"):
		return "GENERATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
