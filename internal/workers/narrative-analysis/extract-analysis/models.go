package extractanalysis

import "opportunity-workers/internal/models"

// Input carries either the narrative text itself or the opportunity and the
// historical rows needed to request one from the model.
type Input struct {
	models.OpportunityInput
	NarrativeText string                   `json:"narrativeText,omitempty"`
	Rows          []map[string]interface{} `json:"rows,omitempty"`
	QueryResults  string                   `json:"queryResults,omitempty"`
	PromptID      string                   `json:"analysisPromptId,omitempty"`
}

type Output struct {
	Analysis        models.AnalysisResult `json:"analysis"`
	MissingSections []string              `json:"missingSections"`
	NarrativeHash   string                `json:"narrativeHash"`
	NarrativeText   string                `json:"narrativeText"`
	Cached          bool                  `json:"cached"`
	ModelInvoked    bool                  `json:"modelInvoked"`
}
