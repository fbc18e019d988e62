package synthesis

import (
	"regexp"

	"opportunity-workers/internal/models"
)

const longQueryLength = 1000

var (
	floorMarker    = regexp.MustCompile(`(?i)relevance_score\s*>=\s*15\b`)
	recencyMarker  = regexp.MustCompile(`(?i)ORDER\s+BY\s+relevance_score\s+DESC\s*,\s*close_date\s+DESC`)
	caseWhenMarker = regexp.MustCompile(`(?i)\bCASE\s+WHEN\b`)
	concatMarker   = regexp.MustCompile(`(?i)\bconcat\s*\(`)
	intervalMarker = regexp.MustCompile(`(?i)\binterval\b`)
)

// QualityScore rates structural markers of a hardened query on a 0-100 scale.
// It is diagnostic only.
func QualityScore(q string, c models.OpportunityCharacteristics) int {
	score := 0
	add := func(ok bool, points int) {
		if ok {
			score += points
		}
	}

	add(HasCTE(q), 20)
	add(floorMarker.MatchString(q), 15)
	add(recencyMarker.MatchString(q), 15)
	add(limitClause.MatchString(q), 10)
	add(dateRangeFilter.MatchString(q), 10)
	add(len(q) > longQueryLength, 10)
	add(caseWhenMarker.MatchString(q), 10)
	add(concatMarker.MatchString(q), 10)

	add(c.Optimization == models.OptimizationAggressive && score > 70, 10)
	add(c.DataVolume == models.DataVolumeHigh && intervalMarker.MatchString(q), 5)

	if score > 100 {
		score = 100
	}
	return score
}
