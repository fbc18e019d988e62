package synthesizequery

import (
	"opportunity-workers/internal/common/diagnostics"
	"opportunity-workers/internal/models"
)

// UserFacingMessage accompanies the fallback query when synthesis aborts.
const UserFacingMessage = "We could not generate a data query for this opportunity. Please try again later."

type Input struct {
	models.OpportunityInput
	PromptID string `json:"promptId,omitempty"`
}

type Output struct {
	SQLQuery        string                            `json:"sql_query"`
	QualityScore    int                               `json:"qualityScore"`
	Characteristics models.OpportunityCharacteristics `json:"characteristics"`
	ExtractionMode  string                            `json:"extractionMode"`
	TypeRepaired    bool                              `json:"typeRepaired"`
	RequestID       string                            `json:"requestId"`
	Diagnostics     []diagnostics.Event               `json:"diagnostics"`
}
