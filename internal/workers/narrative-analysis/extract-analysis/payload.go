package extractanalysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"opportunity-workers/internal/llm"
	"opportunity-workers/internal/models"
	"opportunity-workers/internal/synthesis"
	"opportunity-workers/pkg/registry"
)

// AnalysisMaxTokens is fixed for the analysis call regardless of the template.
const AnalysisMaxTokens = synthesis.MaxTokensCeiling

// buildPayload lays out the user message as opportunity details, then the
// historical rows, then the rendered template.
func buildPayload(tmpl registry.PromptTemplate, in models.OpportunityInput, rows []map[string]interface{}, meta synthesis.RequestMeta) (*llm.Payload, error) {
	if tmpl.ModelID == "" {
		return nil, fmt.Errorf("%w: %s has no modelId", synthesis.ErrInvalidTemplate, tmpl.ID)
	}

	data, err := json.Marshal(projectRowsForModel(rows))
	if err != nil {
		return nil, fmt.Errorf("encode project data: %w", err)
	}

	values := synthesis.PlaceholderValues(in, synthesis.AnalyzeCharacteristics(in), meta)
	user := opportunityDetails(in) +
		"\n\n<project_data>\n" + string(data) + "\n</project_data>\n\n" +
		synthesis.Substitute(tmpl.UserTemplate, values)

	payload := &llm.Payload{
		ModelID: tmpl.ModelID,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: []llm.ContentBlock{{Text: user}},
		}},
		InferenceConfig: llm.InferenceConfig{MaxTokens: AnalysisMaxTokens, Temperature: 0.0},
	}
	if system := strings.TrimSpace(synthesis.Substitute(tmpl.SystemText, values)); system != "" {
		payload.System = []llm.ContentBlock{{Text: system}}
	}
	return payload, nil
}

func opportunityDetails(in models.OpportunityInput) string {
	orNA := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return models.NotAvailable
		}
		return s
	}
	return "<opp_details>\n" +
		"CustomerName: " + orNA(in.CustomerName) + "\n" +
		"Region: " + orNA(in.Region) + "\n" +
		"CloseDate: " + orNA(in.CloseDate) + "\n" +
		"OppName: " + orNA(in.OppName) + "\n" +
		"OppDescription: " + orNA(in.Description) + "\n" +
		"</opp_details>"
}

// projectRowsForModel replaces each row's epoch close_date with a
// historical_opportunity_won_date in YYYY-MM-DD form. Rows are copied.
func projectRowsForModel(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		copied := make(map[string]interface{}, len(row)+1)
		for k, v := range row {
			copied[k] = v
		}
		won := models.NotAvailable
		if ts, ok := epochSeconds(row["close_date"]); ok {
			won = time.Unix(ts, 0).UTC().Format("2006-01-02")
		}
		copied["historical_opportunity_won_date"] = won
		delete(copied, "close_date")
		out = append(out, copied)
	}
	return out
}

// epochSeconds accepts only ten-digit second timestamps.
func epochSeconds(v interface{}) (int64, bool) {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		n = int64(t)
	default:
		return 0, false
	}
	if n < 1_000_000_000 || n > 9_999_999_999 {
		return 0, false
	}
	return n, true
}
