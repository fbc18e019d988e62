package extractanalysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
	"opportunity-workers/internal/llm"
	"opportunity-workers/internal/models"
	"opportunity-workers/internal/narrative"
	"opportunity-workers/internal/synthesis"
	"opportunity-workers/pkg/registry"
)

type PromptSource interface {
	Find(id string) (registry.PromptTemplate, error)
}

type ModelInvoker interface {
	Invoke(ctx context.Context, payload *llm.Payload) (*llm.Response, error)
}

// ResultCache stores parsed analyses keyed by narrative hash.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type ServiceDependencies struct {
	Prompts PromptSource
	Invoker ModelInvoker
	Cache   ResultCache
	Logger  logger.Logger
}

type Service struct {
	config  *Config
	prompts PromptSource
	invoker ModelInvoker
	cache   ResultCache
	logger  logger.Logger
	now     func() time.Time
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	return &Service{
		config:  cfg,
		prompts: deps.Prompts,
		invoker: deps.Invoker,
		cache:   deps.Cache,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// Analyze returns the structured analysis for the input's narrative,
// requesting the narrative from the model first when none was supplied.
// Only the model request can fail; extraction itself always yields a result.
func (s *Service) Analyze(ctx context.Context, input *Input) (*Output, error) {
	text := input.NarrativeText
	invoked := false
	if strings.TrimSpace(text) == "" {
		generated, err := s.requestNarrative(ctx, input)
		if err != nil {
			return nil, err
		}
		text, invoked = generated, true
	}

	hash := narrativeHash(text)
	key := s.config.CachePrefix + hash

	result, cached := s.lookup(ctx, key)
	if !cached {
		result = narrative.Analyze(text)
		s.store(ctx, key, result)
	}

	missing := narrative.MissingSections(result.Sections)
	names := make([]string, 0, len(missing))
	for _, k := range missing {
		metrics.NarrativeSectionsMissing.WithLabelValues(k.Header()).Inc()
		names = append(names, k.Header())
	}

	s.logger.Info("narrative analyzed", map[string]interface{}{
		"hash":            hash[:12],
		"cached":          cached,
		"modelInvoked":    invoked,
		"missingSections": len(names),
		"confidence":      result.Metrics.Confidence,
	})

	return &Output{
		Analysis:        result,
		MissingSections: names,
		NarrativeHash:   hash,
		NarrativeText:   text,
		Cached:          cached,
		ModelInvoked:    invoked,
	}, nil
}

func (s *Service) requestNarrative(ctx context.Context, input *Input) (string, error) {
	if s.invoker == nil || s.prompts == nil {
		return "", errors.NewInvalidInputError("narrativeText is required when model invocation is not configured")
	}

	promptID := input.PromptID
	if promptID == "" {
		promptID = s.config.PromptID
	}
	tmpl, err := s.prompts.Find(promptID)
	if err != nil {
		if stderrors.Is(err, registry.ErrPromptNotFound) {
			return "", errors.NewPromptNotFoundError(promptID)
		}
		return "", errors.NewInvalidInputError(err.Error())
	}

	rows, err := input.projectRows()
	if err != nil {
		return "", errors.NewInvalidInputError(err.Error())
	}

	payload, err := buildPayload(tmpl, input.OpportunityInput, rows, synthesis.RequestMeta{
		RequestID: uuid.NewString(),
		Timestamp: s.now(),
	})
	if err != nil {
		return "", errors.NewInvalidInputError(err.Error())
	}

	resp, err := s.invoker.Invoke(ctx, payload)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.NewLLMTimeoutError()
		}
		var invErr *llm.InvocationError
		if stderrors.As(err, &invErr) {
			return "", errors.NewLLMInvocationFailedError(invErr.Attempts, invErr.Err)
		}
		return "", errors.NewLLMInvocationFailedError(1, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("model returned an empty narrative", map[string]interface{}{"stopReason": resp.StopReason})
	}
	return text, nil
}

// projectRows prefers the rows variable and falls back to a serialized
// {"data": [...]} result set.
func (in *Input) projectRows() ([]map[string]interface{}, error) {
	if len(in.Rows) > 0 || strings.TrimSpace(in.QueryResults) == "" {
		return in.Rows, nil
	}
	var wrapped struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal([]byte(in.QueryResults), &wrapped); err != nil {
		return nil, fmt.Errorf("queryResults is not a valid result set: %w", err)
	}
	return wrapped.Data, nil
}

func (s *Service) lookup(ctx context.Context, key string) (models.AnalysisResult, bool) {
	var result models.AnalysisResult
	if s.cache == nil {
		return result, false
	}
	found, err := s.cache.GetJSON(ctx, key, &result)
	switch {
	case err != nil:
		metrics.NarrativeCacheLookups.WithLabelValues("error").Inc()
		s.logger.Warn("analysis cache lookup failed", map[string]interface{}{"error": err.Error()})
		return models.AnalysisResult{}, false
	case found:
		metrics.NarrativeCacheLookups.WithLabelValues("hit").Inc()
		return result, true
	default:
		metrics.NarrativeCacheLookups.WithLabelValues("miss").Inc()
		return result, false
	}
}

func (s *Service) store(ctx context.Context, key string, result models.AnalysisResult) {
	if s.cache == nil || s.config.CacheTTL == 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, key, result, s.config.CacheTTL); err != nil {
		s.logger.Warn("analysis cache store failed", map[string]interface{}{"error": err.Error()})
	}
}

func narrativeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
