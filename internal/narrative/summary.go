package narrative

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/models"
)

var summarySections = []models.SectionKind{
	models.SectionMethodology,
	models.SectionDetailedFindings,
	models.SectionPredictionRationale,
	models.SectionRiskFactors,
	models.SectionArchitectureDescription,
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)
)

// ComposeSummary renders the human-facing digest. Sections still at their
// default are skipped.
func ComposeSummary(s models.AnalysisSections) string {
	var sb strings.Builder
	for _, k := range summarySections {
		if !s.Present(k) {
			continue
		}
		body := s.Get(k)
		if k == models.SectionArchitectureDescription {
			body = normalizeArchitecture(body)
		}
		sb.WriteString("=== " + k.Header() + " ===\n")
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// normalizeArchitecture puts every layer label at the start of its own
// paragraph and collapses runs of blank lines.
func normalizeArchitecture(body string) string {
	var sb strings.Builder
	last := 0
	for _, m := range layerToken.FindAllStringSubmatchIndex(body, -1) {
		sb.WriteString(body[last:m[2]])
		sb.WriteString("\n\n")
		last = m[2]
	}
	sb.WriteString(body[last:])

	out := trailingSpace.ReplaceAllString(sb.String(), "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
