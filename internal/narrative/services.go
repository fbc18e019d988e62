package narrative

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/models"
)

const (
	servicesUnavailable = "Service information not available"
	servicesUnparsed    = "No service information parsed."
	otherServicesName   = "Other Services (Combined)"
)

var (
	topServicesStart = regexp.MustCompile(`(?i)TOP_SERVICES:?`)
	topServicesStop  = regexp.MustCompile(`(?i)OTHER_SERVICES:|CONFIDENCE:|LAUNCH_DATE:|PREDICTED_PROJECT_DURATION:|MRR:|PREDICTED_ARR:|===\s*VALIDATION[ _]ERRORS\s*===`)
	otherServices    = regexp.MustCompile(`(?i)OTHER_SERVICES:\s*Combined\|?(\$?[^|\n]+)(?:\|(\$?[^|\n]+))?`)
	bulletPrefix     = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
)

func stripBullet(s string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(s), ""))
}

// topServicesBlock returns the text between TOP_SERVICES and the first
// following stop marker.
func topServicesBlock(text string) (string, bool) {
	start := topServicesStart.FindStringIndex(text)
	if start == nil {
		return "", false
	}
	block := text[start[1]:]
	if stop := topServicesStop.FindStringIndex(block); stop != nil {
		block = block[:stop[0]]
	}
	return block, true
}

// ParseServices reads "name | monthly | upfront" lines from the TOP_SERVICES
// block and appends the combined OTHER_SERVICES line when present.
func ParseServices(text string) []models.ServiceCost {
	out := []models.ServiceCost{}
	if block, ok := topServicesBlock(text); ok {
		for _, line := range strings.Split(block, "\n") {
			parts := strings.Split(strings.TrimSpace(line), "|")
			if len(parts) < 2 {
				continue
			}
			svc := models.ServiceCost{
				Name:        stripBullet(parts[0]),
				MonthlyCost: strings.TrimSpace(parts[1]),
			}
			if len(parts) > 2 {
				svc.UpfrontCost = strings.TrimSpace(parts[2])
			}
			if svc.Name == "" {
				continue
			}
			out = append(out, svc)
		}
	}

	if m := otherServices.FindStringSubmatch(text); m != nil {
		out = append(out, models.ServiceCost{
			Name:        otherServicesName,
			MonthlyCost: strings.TrimSpace(m[1]),
			UpfrontCost: strings.TrimSpace(m[2]),
		})
	}
	return out
}

// FormatService renders "**Name** - monthly | upfront".
func FormatService(s models.ServiceCost) string {
	out := "**" + s.Name + "** - " + s.MonthlyCost
	if s.UpfrontCost != "" {
		out += " | " + s.UpfrontCost
	}
	return out
}

// RenderServices joins the formatted services with blank lines.
func RenderServices(text string, services []models.ServiceCost) string {
	if strings.TrimSpace(text) == "" {
		return servicesUnavailable
	}
	if len(services) == 0 {
		return servicesUnparsed
	}
	lines := make([]string, len(services))
	for i, s := range services {
		lines[i] = FormatService(s)
	}
	return strings.Join(lines, "\n\n")
}
