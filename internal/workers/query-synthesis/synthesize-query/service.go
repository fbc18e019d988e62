package synthesizequery

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"opportunity-workers/internal/common/diagnostics"
	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
	"opportunity-workers/internal/common/validation"
	"opportunity-workers/internal/llm"
	"opportunity-workers/internal/models"
	"opportunity-workers/internal/synthesis"
	"opportunity-workers/pkg/registry"
)

// PromptSource resolves prompt templates by id.
type PromptSource interface {
	Find(id string) (registry.PromptTemplate, error)
}

// ModelInvoker sends a payload to the model, retrying as it sees fit.
type ModelInvoker interface {
	Invoke(ctx context.Context, payload *llm.Payload) (*llm.Response, error)
}

type ServiceDependencies struct {
	Prompts PromptSource
	Invoker ModelInvoker
	Logger  logger.Logger
}

// Service runs the synthesis pipeline for one opportunity at a time. It holds
// no per-request state.
type Service struct {
	config    *Config
	prompts   PromptSource
	invoker   ModelInvoker
	extractor *synthesis.QueryExtractor
	repairer  *synthesis.TypeMismatchRepairer
	hardener  *synthesis.QueryHardener
	logger    logger.Logger
	newID     func() string
	now       func() time.Time
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	return &Service{
		config:    cfg,
		prompts:   deps.Prompts,
		invoker:   deps.Invoker,
		extractor: synthesis.NewQueryExtractor(deps.Logger),
		repairer:  synthesis.NewTypeMismatchRepairer(deps.Logger),
		hardener:  synthesis.NewQueryHardener(deps.Logger),
		logger:    deps.Logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

func (s *Service) Synthesize(ctx context.Context, input *Input) (*Output, error) {
	rec := diagnostics.NewRecorder()
	requestID := s.newID()
	log := s.logger.WithFields(map[string]interface{}{"requestId": requestID})

	c := synthesis.AnalyzeCharacteristics(input.OpportunityInput)
	rec.Record("characteristics", "computed", map[string]interface{}{
		"size":         c.Size,
		"complexity":   c.Complexity,
		"dataVolume":   c.DataVolume,
		"optimization": c.Optimization,
		"region":       c.Region,
	})

	promptID := input.PromptID
	if promptID == "" {
		promptID = s.config.PromptID
	}
	tmpl, err := s.prompts.Find(promptID)
	if err != nil {
		if stderrors.Is(err, registry.ErrPromptNotFound) {
			return nil, errors.NewPromptNotFoundError(promptID)
		}
		return nil, errors.NewInvalidInputError(err.Error())
	}

	opp := input.OpportunityInput
	if opp.QueryLimit <= 0 {
		opp.QueryLimit = s.config.QueryLimit
	}

	payload, err := synthesis.BuildPayload(tmpl, opp, c, synthesis.RequestMeta{RequestID: requestID, Timestamp: s.now()})
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	rec.Record("payload", "built", map[string]interface{}{"promptId": promptID, "maxTokens": payload.InferenceConfig.MaxTokens})

	resp, err := s.invoker.Invoke(ctx, payload)
	if err != nil {
		rec.Record("invoke", "failed", map[string]interface{}{"error": err.Error()})
		return nil, withFallback(invocationError(ctx, err), rec)
	}
	rec.Record("invoke", "succeeded", map[string]interface{}{"outputTokens": resp.Usage.OutputTokens})

	extraction := s.extractor.Extract(resp.Text(), rec)
	query, err := synthesis.QueryOf(extraction)
	if err != nil {
		return nil, withFallback(errors.NewQueryExtractionFailedError(err.Error()), rec)
	}

	// Repair runs on the hardened form so a single SELECT is already split
	// into base_projects and an outer projection it can rewrite.
	query = s.hardener.Harden(query, synthesis.HardenOptions{
		DataVolume:     c.DataVolume,
		RelevanceFloor: s.config.RelevanceFloor,
		RowLimit:       opp.RowLimit(),
		SourceTable:    s.config.SourceTable,
	}, rec)
	query, repaired := s.repairer.Repair(query, rec)

	if err := synthesis.ValidateSafety(query); err != nil {
		var safetyErr *synthesis.SafetyError
		pattern := err.Error()
		if stderrors.As(err, &safetyErr) {
			pattern = safetyErr.Pattern
		}
		log.Error("generated query rejected", map[string]interface{}{"pattern": pattern})
		rec.Record("safety", "rejected", map[string]interface{}{"pattern": pattern})
		return nil, withFallback(errors.NewQuerySafetyRejectedError(pattern), rec)
	}
	rec.Record("safety", "passed", nil)

	if result := validation.ValidateQueryContract(query); !result.Valid {
		rec.Record("contract", "invalid", nil)
		return nil, withFallback(errors.NewQueryContractInvalidError(strings.Join(result.GetErrorMessages(), "; ")), rec)
	}

	score := synthesis.QualityScore(query, c)
	metrics.QueryQualityScore.Observe(float64(score))

	log.Info("query synthesized", map[string]interface{}{
		"mode":         extraction.Mode(),
		"qualityScore": score,
		"typeRepaired": repaired,
		"length":       len(query),
	})

	return &Output{
		SQLQuery:        query,
		QualityScore:    score,
		Characteristics: c,
		ExtractionMode:  extraction.Mode(),
		TypeRepaired:    repaired,
		RequestID:       requestID,
		Diagnostics:     rec.Events(),
	}, nil
}

func invocationError(ctx context.Context, err error) *errors.StandardError {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewLLMTimeoutError()
	}
	var invErr *llm.InvocationError
	if stderrors.As(err, &invErr) {
		return errors.NewLLMInvocationFailedError(invErr.Attempts, invErr.Err)
	}
	return errors.NewLLMInvocationFailedError(1, err)
}

// withFallback attaches the placeholder query and user message that
// downstream tasks render when synthesis aborts.
func withFallback(stdErr *errors.StandardError, rec *diagnostics.Recorder) *errors.StandardError {
	return stdErr.
		WithMetadata("sql_query", models.FallbackQuery).
		WithMetadata("userMessage", UserFacingMessage).
		WithMetadata("stages", rec.Stages())
}
