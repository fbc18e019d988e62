// Package narrative turns a sectioned model narrative into structured analysis data.
// Nothing in this package returns an error: absent content becomes models.NotAvailable.
package narrative

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/models"
)

var headerToken = regexp.MustCompile(`===\s*([A-Za-z_ ]+?)\s*===`)

var sectionsByName = func() map[string]models.SectionKind {
	m := make(map[string]models.SectionKind)
	for _, k := range models.AllSections() {
		m[normalizeHeader(k.Header())] = k
	}
	return m
}()

func normalizeHeader(name string) string {
	return strings.NewReplacer(" ", "", "_", "", "\t", "").Replace(strings.ToUpper(name))
}

// ExtractSections scans text once, left to right. A header token opens a new
// section only if it names a known section that has not been opened yet; an
// echoed or unknown header stays part of the current body.
func ExtractSections(text string) models.AnalysisSections {
	sections := models.NewAnalysisSections()

	seen := make(map[models.SectionKind]bool, len(sectionsByName))
	current := models.SectionKind(-1)
	bodyStart := 0
	closeCurrent := func(end int) {
		if current < 0 {
			return
		}
		if body := strings.TrimSpace(text[bodyStart:end]); body != "" {
			sections.Set(current, body)
		}
	}

	for _, tok := range headerToken.FindAllStringSubmatchIndex(text, -1) {
		kind, known := sectionsByName[normalizeHeader(text[tok[2]:tok[3]])]
		if !known || seen[kind] {
			continue
		}
		closeCurrent(tok[0])
		seen[kind] = true
		current = kind
		bodyStart = tok[1]
	}
	closeCurrent(len(text))
	return sections
}

// MissingSections lists the kinds still at their default value.
func MissingSections(s models.AnalysisSections) []models.SectionKind {
	var out []models.SectionKind
	for _, k := range models.AllSections() {
		if !s.Present(k) {
			out = append(out, k)
		}
	}
	return out
}
