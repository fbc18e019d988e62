package synthesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"opportunity-workers/internal/common/diagnostics"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
)

var ErrNoUsableQuery = errors.New("no usable query found")

// Extraction is the outcome of parsing a model response. It is one of
// Ok, FallbackParsed or Failed.
type Extraction interface {
	Mode() string
	extraction()
}

// Ok is a response that parsed as {"sql_query": "..."}.
type Ok struct {
	Query            string
	StartsWithSelect bool
}

// FallbackParsed is a query scavenged from a response that was not clean JSON.
type FallbackParsed struct {
	Query    string
	Strategy string
}

// Failed means neither path produced a query.
type Failed struct {
	Reason string
}

func (Ok) Mode() string             { return "strict" }
func (FallbackParsed) Mode() string { return "fallback" }
func (Failed) Mode() string         { return "failed" }

func (Ok) extraction()             {}
func (FallbackParsed) extraction() {}
func (Failed) extraction()         {}

// QueryOf returns the query carried by e, or ErrNoUsableQuery.
func QueryOf(e Extraction) (string, error) {
	switch v := e.(type) {
	case Ok:
		return v.Query, nil
	case FallbackParsed:
		return v.Query, nil
	case Failed:
		return "", fmt.Errorf("%w: %s", ErrNoUsableQuery, v.Reason)
	default:
		return "", ErrNoUsableQuery
	}
}

const (
	StrategyWithLimitSpan = "with-limit-span"
	StrategyJSONSpan      = "json-span"
)

var (
	withLimitSpan  = regexp.MustCompile(`(?is)\bWITH\s+\w+\s+AS\s*\(.*\bLIMIT\s+\d+`)
	jsonSpanWide   = regexp.MustCompile(`(?s)\{.*"sql_query".*\}`)
	jsonSpanNarrow = regexp.MustCompile(`(?s)\{[^{}]*"sql_query"[^{}]*\}`)
	selectPrefix   = regexp.MustCompile(`(?i)^\s*SELECT\b`)
)

// QueryExtractor parses raw model text into an Extraction.
type QueryExtractor struct {
	logger logger.Logger
}

func NewQueryExtractor(log logger.Logger) *QueryExtractor {
	return &QueryExtractor{logger: log.WithFields(map[string]interface{}{"stage": "extract"})}
}

// Extract tries the strict JSON path first and falls back to pattern
// scavenging only when that fails.
func (x *QueryExtractor) Extract(text string, rec *diagnostics.Recorder) Extraction {
	result := x.extract(text, rec)
	metrics.QueryExtractions.WithLabelValues(result.Mode()).Inc()
	return result
}

func (x *QueryExtractor) extract(text string, rec *diagnostics.Recorder) Extraction {
	query, strictErr := parseContract(text)
	if strictErr == nil {
		ok := Ok{Query: query, StartsWithSelect: selectPrefix.MatchString(query)}
		if !ok.StartsWithSelect {
			x.logger.Warn("extracted query does not start with SELECT", map[string]interface{}{
				"prefix": prefix(query, 40),
			})
			rec.Record("extract", "query does not start with SELECT", nil)
		}
		return ok
	}

	x.logger.Warn("strict parse failed, trying fallback", map[string]interface{}{"error": strictErr.Error()})
	rec.Record("extract", "strict parse failed", map[string]interface{}{"error": strictErr.Error()})

	if span := withLimitSpan.FindString(text); span != "" && !looksEscaped(span) {
		rec.Record("extract", "fallback matched", map[string]interface{}{"strategy": StrategyWithLimitSpan})
		return FallbackParsed{Query: strings.TrimSpace(span), Strategy: StrategyWithLimitSpan}
	}

	for _, re := range []*regexp.Regexp{jsonSpanWide, jsonSpanNarrow} {
		span := re.FindString(text)
		if span == "" {
			continue
		}
		if q, err := parseContract(span); err == nil {
			rec.Record("extract", "fallback matched", map[string]interface{}{"strategy": StrategyJSONSpan})
			return FallbackParsed{Query: q, Strategy: StrategyJSONSpan}
		}
	}

	x.logger.Error("no usable query in model response", map[string]interface{}{"length": len(text)})
	rec.Record("extract", "extraction failed", nil)
	return Failed{Reason: ErrNoUsableQuery.Error()}
}

// parseContract decodes text as a JSON object with a non-empty string sql_query.
func parseContract(text string) (string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return "", err
	}
	raw, present := obj["sql_query"]
	if !present {
		return "", errors.New("sql_query missing")
	}
	q, isString := raw.(string)
	if !isString {
		return "", fmt.Errorf("sql_query has type %T", raw)
	}
	if strings.TrimSpace(q) == "" {
		return "", errors.New("sql_query is empty")
	}
	return q, nil
}

// looksEscaped reports a span lifted out of a JSON string literal.
func looksEscaped(span string) bool {
	return strings.Contains(span, `\"`) || strings.Contains(span, `\n`)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
