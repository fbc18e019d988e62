package synthesis

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/common/diagnostics"
	"opportunity-workers/internal/common/logger"
)

// The known defect: annual_run_rate_usd is formatted into a display string
// under its own name, then compared numerically further down the query.
var (
	formattedARRColumn = regexp.MustCompile(`(?i)FORMAT\(\s*'%,\.0f'\s*,\s*annual_run_rate_usd\s*\)\s+AS\s+annual_run_rate_usd\b`)
	numericARRCompare  = regexp.MustCompile(`(?i)annual_run_rate_usd\s*[<>]=?\s*\d`)
	formatCall         = regexp.MustCompile(`(?i)\bFORMAT\s*\(`)
	selectStarFrom     = regexp.MustCompile(`(?i)SELECT\s+\*\s+FROM\s+([A-Za-z_][A-Za-z0-9_]*)`)
	doubleFormatted    = regexp.MustCompile(`(?i)annual_run_rate_usd_formatted\s+AS\s+annual_run_rate_usd_formatted\b`)
	bareARRColumn      = regexp.MustCompile(`(?i)(^|[\s,])annual_run_rate_usd(\s*(?:,|\bFROM\b))`)
	splitColumnAlias   = regexp.MustCompile(`(?i)\bAS\s+annual_run_rate_usd_formatted\b`)
)

const (
	splitARRColumns = "annual_run_rate_usd, FORMAT('%,.0f', annual_run_rate_usd) AS annual_run_rate_usd_formatted"
	displayARR      = "annual_run_rate_usd_formatted AS annual_run_rate_usd"
)

// projectColumns is the output column list of the historical project table.
var projectColumns = []string{
	"activity_name", "project_type", "cor_gtm_apn_sfdc", "program", `"unified program mapping"`,
	"customer_name", `"aws account id"`, displayARR, "aws_account_id_for_this_project",
	"opportunity_18_character_oppty_id", "apn_oppty_id", "customer_segment", "industry",
	"close_date", "planned_delivery_start_date", "planned_delivery_end_date", "migration_phase",
	"opportunity_region", `"oppertunity-sub-region"`, "country", "opportunity_name", "description",
	"business_description", "partner_name", "spms_id", "apfp_aws_calculator_url", "calculator_uid",
	`service1, "monthly $ service1", "upfront $ service1"`,
	`service2, "monthly $ service2", "upfront $ service2"`,
	`service3, "monthly $ service3", "upfront $ service3"`,
	`service4, "monthly $ service4", "upfront $ service4"`,
	`service5, "monthly $ service5", "upfront $ service5"`,
	`service6, "monthly $ service6", "upfront $ service6"`,
	`service7, "monthly $ service7", "upfront $ service7"`,
	`service8, "monthly $ service8", "upfront $ service8"`,
	`service9, "monthly $ service9", "upfront $ service9"`,
	`servicex, "monthly $ servicex", "upfront $ servicex"`,
	"relevance_score",
}

// DetectTypeMismatch reports whether q carries the formatted-ARR defect.
func DetectTypeMismatch(q string) bool {
	if formattedARRColumn.MatchString(q) {
		return true
	}
	return numericARRCompare.MatchString(q) &&
		formatCall.MatchString(q) &&
		!strings.Contains(strings.ToLower(q), "annual_run_rate_usd_formatted")
}

// TypeMismatchRepairer splits the formatted ARR column into a numeric and a
// display column and points the final projection at the display one.
type TypeMismatchRepairer struct {
	logger logger.Logger
}

func NewTypeMismatchRepairer(log logger.Logger) *TypeMismatchRepairer {
	return &TypeMismatchRepairer{logger: log.WithFields(map[string]interface{}{"stage": "type-repair"})}
}

// Repair returns the rewritten query and whether anything changed.
func (r *TypeMismatchRepairer) Repair(q string, rec *diagnostics.Recorder) (string, bool) {
	if !DetectTypeMismatch(q) {
		r.logger.Debug("no type mismatch detected", nil)
		rec.Record("type-repair", "no rewrite needed", nil)
		return q, false
	}

	fixed := formattedARRColumn.ReplaceAllString(q, splitARRColumns)
	if fixed == q {
		r.logger.Warn("type mismatch suspected but formatted column not found", nil)
		rec.Record("type-repair", "suspected mismatch left unchanged", nil)
		return q, false
	}

	fixed = rewriteFinalProjection(fixed)
	fixed = doubleFormatted.ReplaceAllString(fixed, displayARR)

	r.logger.Info("type mismatch repaired", nil)
	rec.Record("type-repair", "formatted column split", nil)
	return fixed, true
}

// rewriteFinalProjection exposes the display column under the original name in
// the last SELECT of the query. A SELECT that defines the split columns is left
// alone: its own aliases are not visible to its WHERE clause.
func rewriteFinalProjection(q string) string {
	selects := selectKeyword.FindAllStringIndex(q, -1)
	if len(selects) == 0 {
		return q
	}
	last := selects[len(selects)-1][0]
	head, tail := q[:last], q[last:]
	if splitColumnAlias.MatchString(tail) {
		return q
	}

	if m := selectStarFrom.FindStringSubmatchIndex(tail); m != nil && m[0] == 0 {
		source := tail[m[2]:m[3]]
		return head + "SELECT\n  " + strings.Join(projectColumns, ",\n  ") + "\nFROM " + source + tail[m[1]:]
	}

	if loc := bareARRColumn.FindStringSubmatchIndex(tail); loc != nil {
		return head + tail[:loc[3]] + displayARR + tail[loc[4]:]
	}
	return q
}
