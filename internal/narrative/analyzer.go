package narrative

import "opportunity-workers/internal/models"

// Analyze runs section, metrics and summary extraction over raw narrative text.
func Analyze(text string) models.AnalysisResult {
	sections := ExtractSections(text)
	return models.AnalysisResult{
		Sections:         sections,
		Metrics:          ExtractMetrics(sections),
		FormattedSummary: ComposeSummary(sections),
	}
}
