package synthesis

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"opportunity-workers/internal/llm"
	"opportunity-workers/internal/models"
	"opportunity-workers/pkg/registry"
)

const (
	NotSpecified     = "Not specified"
	DefaultMaxTokens = 6144
	MaxTokensCeiling = 10000
)

// OptimizationGuidance is appended to every synthesis system prompt.
const OptimizationGuidance = "\n\nOPTIMIZATION GUIDANCE:\n" +
	"- Use relevance_score >= 15 for broader result coverage\n" +
	"- Include recency sorting: ORDER BY relevance_score DESC, close_date DESC\n" +
	"- Apply broader keyword matching patterns\n" +
	"- Optimize for Athena performance with CTE structure\n" +
	"- Ensure 150-200 results for comprehensive analysis"

var ErrInvalidTemplate = errors.New("invalid prompt template")

var anyPlaceholder = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// RequestMeta carries per-request values that are not part of the opportunity.
type RequestMeta struct {
	RequestID string
	Timestamp time.Time
}

// PlaceholderValues returns the substitution table keyed by lower-cased name.
func PlaceholderValues(in models.OpportunityInput, c models.OpportunityCharacteristics, meta RequestMeta) map[string]string {
	ts := ""
	if !meta.Timestamp.IsZero() {
		ts = meta.Timestamp.UTC().Format(time.RFC3339)
	}
	values := map[string]string{
		"customername":        in.CustomerName,
		"region":              in.Region,
		"closedate":           in.CloseDate,
		"oppname":             in.OppName,
		"oppdescription":      in.Description,
		"timestamp":           ts,
		"requestid":           meta.RequestID,
		"querylimit":          strconv.Itoa(in.RowLimit()),
		"industry":            in.Industry,
		"customersegment":     in.CustomerSegment,
		"partnername":         in.PartnerName,
		"activityfocus":       in.ActivityFocus,
		"businessdescription": in.BusinessDescription,
		"migrationphase":      in.MigrationPhase,
		"optimizationlevel":   string(c.Optimization),
		"datavolume":          string(c.DataVolume),
		"sizetier":            string(c.Size),
		"complexity":          string(c.Complexity),
		"regionbucket":        string(c.Region),
	}
	if values["customersegment"] == "" {
		values["customersegment"] = c.CustomerSegment
	}
	return values
}

// Substitute expands every {{name}} in text. Unknown names and empty values
// become NotSpecified so no placeholder survives.
func Substitute(text string, values map[string]string) string {
	return anyPlaceholder.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.ToLower(anyPlaceholder.FindStringSubmatch(token)[1])
		if v := strings.TrimSpace(values[name]); v != "" {
			return v
		}
		return NotSpecified
	})
}

func boundedMaxTokens(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxTokens
	case n > MaxTokensCeiling:
		return MaxTokensCeiling
	default:
		return n
	}
}

// BuildPayload merges template, opportunity and characteristics into an
// invocation payload with temperature 0.
func BuildPayload(tmpl registry.PromptTemplate, in models.OpportunityInput, c models.OpportunityCharacteristics, meta RequestMeta) (*llm.Payload, error) {
	if tmpl.ModelID == "" {
		return nil, fmt.Errorf("%w: %s has no modelId", ErrInvalidTemplate, tmpl.ID)
	}
	if strings.TrimSpace(tmpl.UserTemplate) == "" {
		return nil, fmt.Errorf("%w: %s has no userTemplate", ErrInvalidTemplate, tmpl.ID)
	}

	values := PlaceholderValues(in, c, meta)
	system := Substitute(tmpl.SystemText, values) + OptimizationGuidance
	user := Substitute(tmpl.UserTemplate, values)

	return &llm.Payload{
		ModelID: tmpl.ModelID,
		System:  []llm.ContentBlock{{Text: system}},
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: []llm.ContentBlock{{Text: user}},
		}},
		InferenceConfig: llm.InferenceConfig{
			MaxTokens:   boundedMaxTokens(tmpl.MaxTokens),
			Temperature: 0.0,
		},
	}, nil
}
