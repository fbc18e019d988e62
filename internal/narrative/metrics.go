package narrative

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"opportunity-workers/internal/models"
)

var (
	arrPattern        = regexp.MustCompile(`(?i)PREDICTED_ARR:\s*(\$[^\n<]+)`)
	mrrPattern        = regexp.MustCompile(`(?i)\bMRR:\s*(\$[^\n<]+)`)
	launchPattern     = regexp.MustCompile(`(?i)LAUNCH_DATE:\s*(\d{4}-\d{2})\b`)
	durationPattern   = regexp.MustCompile(`(?i)PREDICTED_PROJECT_DURATION:[ \t]*([^\n]+)`)
	confidencePattern = regexp.MustCompile(`(?i)\bCONFIDENCE:\s*(HIGH|MEDIUM|LOW)\b`)
	factorsPattern    = regexp.MustCompile(`(?i)confidence[ \t]*factors?:`)
	factorsStop       = regexp.MustCompile(`\n[ \t]*\n|===`)
	yearMonth         = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return models.NotAvailable
	}
	if v := strings.TrimSpace(m[1]); v != "" {
		return v
	}
	return models.NotAvailable
}

// FormatLaunchDate renders "2025-03" as "March 2025". Anything that is not a
// valid year-month is returned unchanged.
func FormatLaunchDate(raw string) string {
	m := yearMonth.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return raw
	}
	return fmt.Sprintf("%s %s", time.Month(month).String(), m[1])
}

// ParseConfidence reads the CONFIDENCE field, defaulting to UNKNOWN.
func ParseConfidence(text string) models.Confidence {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return models.ConfidenceUnknown
	}
	return models.Confidence(strings.ToUpper(m[1]))
}

// ConfidenceFactors returns the comma or newline separated factor list that
// follows a "Confidence Factors:" label.
func ConfidenceFactors(text string) []string {
	loc := factorsPattern.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	block := text[loc[1]:]
	if stop := factorsStop.FindStringIndex(block); stop != nil {
		block = block[:stop[0]]
	}

	var out []string
	for _, part := range strings.FieldsFunc(block, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f := stripBullet(part); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ExtractMetrics reads SUMMARY METRICS and ARCHITECTURE DESCRIPTION. Fields
// that are absent keep their documented defaults.
func ExtractMetrics(s models.AnalysisSections) models.Metrics {
	summary := s.Get(models.SectionSummaryMetrics)
	if summary == models.NotAvailable {
		summary = ""
	}

	confidence := ParseConfidence(summary)
	factors := ConfidenceFactors(summary)
	if len(factors) == 0 && s.Present(models.SectionPredictionRationale) {
		factors = ConfidenceFactors(s.Get(models.SectionPredictionRationale))
	}
	if factors == nil {
		factors = []string{}
	}

	services := ParseServices(summary)
	return models.Metrics{
		PredictedARR:       firstGroup(arrPattern, summary),
		MRR:                firstGroup(mrrPattern, summary),
		LaunchDate:         FormatLaunchDate(firstGroup(launchPattern, summary)),
		PredictedDuration:  firstGroup(durationPattern, summary),
		Confidence:         confidence,
		ConfidenceScore:    confidence.Score(),
		ConfidenceFactors:  factors,
		TopServices:        services,
		TopServicesDisplay: RenderServices(summary, services),
		Architecture:       ExtractArchitecture(s.Get(models.SectionArchitectureDescription)),
	}
}
