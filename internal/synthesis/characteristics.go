// Package synthesis turns an opportunity into a hardened, validated query.
package synthesis

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/models"
)

var (
	enterpriseTerms = compileTerms("enterprise", "large scale", "global")
	smbTerms        = compileTerms("startup", "small business", "smb")

	complexityTerms = compileTerms(
		"migration", "modernization", "transformation", "legacy", "mainframe",
		"multi-cloud", "hybrid", "container", "kubernetes", "microservices",
		"ai", "machine learning", "analytics", "data lake", "real-time",
	)

	europeCountries = []string{
		"germany", "france", "spain", "italy", "netherlands", "belgium", "sweden", "norway",
		"denmark", "finland", "poland", "austria", "switzerland", "ireland", "portugal",
		"united kingdom", "uk", "england", "scotland", "greece", "czech", "hungary", "romania",
	}
	apacCountries = []string{
		"japan", "china", "india", "australia", "new zealand", "singapore", "korea",
		"indonesia", "malaysia", "thailand", "vietnam", "philippines", "hong kong", "taiwan",
	}
)

const (
	highComplexityThreshold   = 5
	mediumComplexityThreshold = 3
)

// shortTermLen is the longest term that also needs a trailing boundary, so
// "ai" stays out of "maintain" while "containers" still counts as "container".
const shortTermLen = 3

func compileTerms(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, term := range terms {
		pattern := `\b` + regexp.QuoteMeta(term)
		if len(term) <= shortTermLen {
			pattern += `\b`
		}
		out[i] = regexp.MustCompile(pattern)
	}
	return out
}

func countMatches(text string, terms []*regexp.Regexp) int {
	n := 0
	for _, re := range terms {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

// AnalyzeCharacteristics derives size, complexity, volume, optimization and
// region signals from the opportunity's free text.
func AnalyzeCharacteristics(in models.OpportunityInput) models.OpportunityCharacteristics {
	text := strings.ToLower(strings.TrimSpace(in.Description + " " + in.OppName))

	c := models.OpportunityCharacteristics{
		Size:            models.SizeMedium,
		Complexity:      models.ComplexityMedium,
		CustomerSegment: models.SegmentCommercial,
		DataVolume:      models.DataVolumeStandard,
		Optimization:    models.OptimizationBalanced,
		Region:          RegionBucketFor(in.Region),
	}
	if text == "" {
		return c
	}

	enterprise := countMatches(text, enterpriseTerms) > 0
	smb := countMatches(text, smbTerms) > 0
	switch {
	case enterprise && !smb:
		c.Size = models.SizeEnterprise
		c.CustomerSegment = models.SegmentEnterprise
		c.DataVolume = models.DataVolumeHigh
	case smb && !enterprise:
		c.Size = models.SizeSMB
		c.CustomerSegment = models.SegmentSMB
		c.DataVolume = models.DataVolumeLow
	}

	c.ComplexityScore = countMatches(text, complexityTerms)
	switch {
	case c.ComplexityScore >= highComplexityThreshold:
		c.Complexity = models.ComplexityHigh
		c.Optimization = models.OptimizationAggressive
	case c.ComplexityScore >= mediumComplexityThreshold:
		c.Complexity = models.ComplexityMedium
		c.Optimization = models.OptimizationBalanced
	default:
		c.Complexity = models.ComplexityLow
		c.Optimization = models.OptimizationConservative
	}
	return c
}

// RegionBucketFor maps a free-form region or country onto a bucket.
func RegionBucketFor(region string) models.RegionBucket {
	r := strings.ToLower(strings.TrimSpace(region))
	switch {
	case r == "":
		return models.RegionAmericas
	case strings.Contains(r, "eu") || strings.Contains(r, "emea") || containsWord(r, europeCountries):
		return models.RegionEurope
	case strings.Contains(r, "ap") || strings.Contains(r, "asia") || containsWord(r, apacCountries):
		return models.RegionAPAC
	default:
		return models.RegionAmericas
	}
}

func containsWord(text string, words []string) bool {
	padded := " " + strings.NewReplacer(",", " ", "-", " ", "/", " ").Replace(text) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}
