package narrative

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"opportunity-workers/internal/models"
)

func TestExtractSections_RoundTrip(t *testing.T) {
	var sb strings.Builder
	want := models.NewAnalysisSections()
	for _, k := range models.AllSections() {
		body := fmt.Sprintf("Body of %s\nsecond line for %d", strings.ToLower(k.Header()), k)
		want.Set(k, body)
		fmt.Fprintf(&sb, "===%s===\n  %s  \n\n", k.Header(), body)
	}

	assert.Equal(t, want, ExtractSections(sb.String()))
}

func TestExtractSections_Defaults(t *testing.T) {
	for _, text := range []string{"", "   ", "Just some prose without any headers.", "=== NOT A SECTION ===\nbody"} {
		t.Run(text, func(t *testing.T) {
			got := ExtractSections(text)
			assert.Equal(t, models.NewAnalysisSections(), got)
			assert.Len(t, MissingSections(got), 8)
		})
	}
}

func TestExtractSections(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, s models.AnalysisSections)
	}{
		{
			name: "tolerates whitespace and case in headers",
			text: "=== risk   factors ===\nVendor lock-in\n===  Summary_Metrics===\nCONFIDENCE: HIGH",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "Vendor lock-in", s.RiskFactors)
				assert.Equal(t, "CONFIDENCE: HIGH", s.SummaryMetrics)
			},
		},
		{
			name: "echoed earlier header stays in the body",
			text: "===ANALYSIS METHODOLOGY===\nm\n===DETAILED FINDINGS===\nWe revisited ===ANALYSIS METHODOLOGY=== here\n===RISK FACTORS===\nrisks",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "We revisited ===ANALYSIS METHODOLOGY=== here", s.DetailedFindings)
				assert.Equal(t, "m", s.Methodology)
				assert.Equal(t, "risks", s.RiskFactors)
			},
		},
		{
			name: "out of order header does not swallow the rest",
			text: "===VALIDATION_ERRORS===\nnone\n===ANALYSIS METHODOLOGY===\nm\n===SUMMARY METRICS===\nCONFIDENCE: HIGH",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "none", s.ValidationErrors)
				assert.Equal(t, "m", s.Methodology)
				assert.Equal(t, "CONFIDENCE: HIGH", s.SummaryMetrics)
			},
		},
		{
			name: "unknown header is content",
			text: "===SUMMARY METRICS===\nA\n===APPENDIX===\nB",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "A\n===APPENDIX===\nB", s.SummaryMetrics)
			},
		},
		{
			name: "empty body keeps default",
			text: "===ANALYSIS METHODOLOGY===\n\n===RISK FACTORS===\nr",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, models.NotAvailable, s.Methodology)
				assert.Equal(t, "r", s.RiskFactors)
			},
		},
		{
			name: "preamble before the first header is dropped",
			text: "Sure, here is the analysis.\n===SIMILAR PROJECTS===\n1. Project A",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "1. Project A", s.SimilarProjects)
			},
		},
		{
			name: "underscore header name",
			text: "===VALIDATION_ERRORS===\nnone",
			check: func(t *testing.T, s models.AnalysisSections) {
				assert.Equal(t, "none", s.ValidationErrors)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ExtractSections(tt.text))
		})
	}
}

func TestMissingSections(t *testing.T) {
	s := ExtractSections("===ANALYSIS METHODOLOGY===\nm\n===SUMMARY METRICS===\nx")
	missing := MissingSections(s)
	assert.Len(t, missing, 6)
	assert.NotContains(t, missing, models.SectionMethodology)
	assert.NotContains(t, missing, models.SectionSummaryMetrics)
}
