package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"opportunity-workers/internal/common/diagnostics"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
	"opportunity-workers/internal/models"
)

const (
	DefaultRelevanceFloor = 15
	DefaultSourceTable    = "parquet"
	baseCTEName           = "base_projects"
	recencyPredicate      = "from_unixtime(close_date) > (current_date - interval '2' year)"
)

// HardenOptions parameterize the rewriting passes.
type HardenOptions struct {
	DataVolume     models.DataVolume
	RelevanceFloor int
	RowLimit       int
	SourceTable    string
}

func (o HardenOptions) withDefaults() HardenOptions {
	if o.RelevanceFloor <= 0 {
		o.RelevanceFloor = DefaultRelevanceFloor
	}
	if o.RowLimit <= 0 {
		o.RowLimit = models.DefaultQueryLimit
	}
	if o.SourceTable == "" {
		o.SourceTable = DefaultSourceTable
	}
	return o
}

var (
	withKeyword      = regexp.MustCompile(`(?i)\bWITH\b`)
	selectKeyword    = regexp.MustCompile(`(?i)\bSELECT\b`)
	relevanceCompare = regexp.MustCompile(`(?i)relevance_score\s*>=\s*\d+(?:\.\d+)?`)
	recencyKey       = regexp.MustCompile(`(?i)close_date\s+DESC`)
	relevanceOrder   = regexp.MustCompile(`(?i)ORDER\s+BY\s+relevance_score\s+DESC`)
	dateRangeFilter  = regexp.MustCompile(`(?i)from_unixtime\(\s*close_date\s*\)`)
	limitClause      = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
	leadingWhere     = regexp.MustCompile(`(?i)^\s*WHERE\b`)
	trailingTerminal = regexp.MustCompile(`[\s;]+$`)
)

type hardeningPass struct {
	name  string
	apply func(q string, o HardenOptions) string
}

var hardeningPasses = []hardeningPass{
	{"cte-wrap", wrapInCTE},
	{"relevance-floor", normalizeRelevanceFloor},
	{"recency-order", addRecencyOrder},
	{"date-range", addDateRange},
	{"limit", ensureLimit},
}

// QueryHardener applies ordered, idempotent rewrites to a generated query.
type QueryHardener struct {
	logger logger.Logger
}

func NewQueryHardener(log logger.Logger) *QueryHardener {
	return &QueryHardener{logger: log.WithFields(map[string]interface{}{"stage": "harden"})}
}

// Harden never fails. If a pass panics the original query is returned.
func (h *QueryHardener) Harden(query string, opts HardenOptions, rec *diagnostics.Recorder) (out string) {
	opts = opts.withDefaults()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("hardening aborted, returning input", map[string]interface{}{"panic": fmt.Sprint(r)})
			rec.Record("harden", "aborted", map[string]interface{}{"panic": fmt.Sprint(r)})
			out = query
		}
	}()

	out = query
	for _, pass := range hardeningPasses {
		next := pass.apply(out, opts)
		if next != out {
			metrics.QueryHardeningPasses.WithLabelValues(pass.name).Inc()
			rec.Record("harden", "pass applied", map[string]interface{}{"pass": pass.name})
			h.logger.Debug("hardening pass applied", map[string]interface{}{"pass": pass.name})
		}
		out = next
	}
	return out
}

func sourcePattern(table string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\bFROM\s+` + regexp.QuoteMeta(table) + `\b`)
}

// wrapInCTE turns "SELECT ... FROM src rest" into
// "WITH base_projects AS (SELECT ... FROM src) SELECT * FROM base_projects rest".
func wrapInCTE(q string, o HardenOptions) string {
	if withKeyword.MatchString(q) {
		return q
	}
	sel := selectKeyword.FindStringIndex(q)
	if sel == nil {
		return q
	}
	from := sourcePattern(o.SourceTable).FindStringIndex(q[sel[0]:])
	if from == nil {
		return q
	}
	fromEnd := sel[0] + from[1]
	return q[:sel[0]] +
		"WITH " + baseCTEName + " AS (\n" + q[sel[0]:fromEnd] +
		"\n)\nSELECT * FROM " + baseCTEName +
		q[fromEnd:]
}

func normalizeRelevanceFloor(q string, o HardenOptions) string {
	return relevanceCompare.ReplaceAllString(q, fmt.Sprintf("relevance_score >= %d", o.RelevanceFloor))
}

func addRecencyOrder(q string, _ HardenOptions) string {
	if recencyKey.MatchString(q) {
		return q
	}
	loc := relevanceOrder.FindStringIndex(q)
	if loc == nil {
		return q
	}
	return q[:loc[1]] + ", close_date DESC" + q[loc[1]:]
}

func addDateRange(q string, o HardenOptions) string {
	if o.DataVolume != models.DataVolumeHigh || dateRangeFilter.MatchString(q) {
		return q
	}
	loc := sourcePattern(o.SourceTable).FindStringIndex(q)
	if loc == nil {
		return q
	}
	rest := q[loc[1]:]
	if w := leadingWhere.FindStringIndex(rest); w != nil {
		return q[:loc[1]] + rest[:w[1]] + " " + recencyPredicate + " AND" + rest[w[1]:]
	}
	return q[:loc[1]] + "\nWHERE " + recencyPredicate + rest
}

func ensureLimit(q string, o HardenOptions) string {
	if limitClause.MatchString(q) {
		return q
	}
	return trailingTerminal.ReplaceAllString(q, "") + fmt.Sprintf(" LIMIT %d", o.RowLimit)
}

// HasCTE reports whether the query already uses a WITH clause.
func HasCTE(q string) bool {
	return withKeyword.MatchString(strings.TrimSpace(q))
}
