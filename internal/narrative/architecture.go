package narrative

import (
	"regexp"
	"strings"

	"opportunity-workers/internal/models"
)

// LayerLabels are the architecture layer labels in display order.
var LayerLabels = []string{
	"NETWORK_FOUNDATION",
	"COMPUTE_LAYER",
	"DATA_LAYER",
	"SECURITY_COMPONENTS",
	"INTEGRATION_POINTS",
	"SCALING_ELEMENTS",
	"MANAGEMENT_TOOLS",
	"COMPLETE_ARCHITECTURE",
}

// layerToken matches any layer label followed by a colon, tolerating a space
// in place of the underscore.
var layerToken = func() *regexp.Regexp {
	alts := make([]string, len(LayerLabels))
	for i, l := range LayerLabels {
		alts[i] = strings.ReplaceAll(l, "_", "[ _]")
	}
	return regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])(` + strings.Join(alts, "|") + `):`)
}()

func canonicalLayer(label string) string {
	return strings.ReplaceAll(strings.ToUpper(label), " ", "_")
}

// ExtractArchitecture slices the architecture section into its eight layers.
// Each layer runs up to the next layer label of any kind.
func ExtractArchitecture(section string) models.ArchitectureBreakdown {
	layers := make(map[string]string, len(LayerLabels))
	if section != models.NotAvailable {
		matches := layerToken.FindAllStringSubmatchIndex(section, -1)
		for i, m := range matches {
			end := len(section)
			if i+1 < len(matches) {
				end = matches[i+1][2]
			}
			label := canonicalLayer(section[m[2]:m[3]])
			if _, seen := layers[label]; seen {
				continue
			}
			if body := strings.TrimSpace(section[m[1]:end]); body != "" {
				layers[label] = body
			}
		}
	}

	get := func(label string) string {
		if v, ok := layers[label]; ok {
			return v
		}
		return models.NotAvailable
	}
	return models.ArchitectureBreakdown{
		NetworkFoundation:    get("NETWORK_FOUNDATION"),
		ComputeLayer:         get("COMPUTE_LAYER"),
		DataLayer:            get("DATA_LAYER"),
		SecurityComponents:   get("SECURITY_COMPONENTS"),
		IntegrationPoints:    get("INTEGRATION_POINTS"),
		ScalingElements:      get("SCALING_ELEMENTS"),
		ManagementTools:      get("MANAGEMENT_TOOLS"),
		CompleteArchitecture: get("COMPLETE_ARCHITECTURE"),
	}
}
