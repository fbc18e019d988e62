// internal/models/analysis.go
package models

// NotAvailable marks a section or field the narrative did not supply.
const NotAvailable = "N/A"

// SectionKind enumerates the narrative sections in canonical order.
type SectionKind int

const (
	SectionMethodology SectionKind = iota
	SectionSimilarProjects
	SectionDetailedFindings
	SectionPredictionRationale
	SectionRiskFactors
	SectionArchitectureDescription
	SectionSummaryMetrics
	SectionValidationErrors

	sectionCount
)

var sectionHeaders = [sectionCount]string{
	"ANALYSIS METHODOLOGY",
	"SIMILAR PROJECTS",
	"DETAILED FINDINGS",
	"PREDICTION RATIONALE",
	"RISK FACTORS",
	"ARCHITECTURE DESCRIPTION",
	"SUMMARY METRICS",
	"VALIDATION ERRORS",
}

// AllSections lists every kind in canonical order.
func AllSections() []SectionKind {
	out := make([]SectionKind, 0, sectionCount)
	for k := SectionKind(0); k < sectionCount; k++ {
		out = append(out, k)
	}
	return out
}

// Header is the banner text used for the section, e.g. "RISK FACTORS".
func (k SectionKind) Header() string {
	if k < 0 || k >= sectionCount {
		return ""
	}
	return sectionHeaders[k]
}

func (k SectionKind) String() string { return k.Header() }

// AnalysisSections holds the text of each section. Every field defaults to NotAvailable.
type AnalysisSections struct {
	Methodology             string `json:"methodology"`
	SimilarProjects         string `json:"similarProjects"`
	DetailedFindings        string `json:"detailedFindings"`
	PredictionRationale     string `json:"predictionRationale"`
	RiskFactors             string `json:"riskFactors"`
	ArchitectureDescription string `json:"architectureDescription"`
	SummaryMetrics          string `json:"summaryMetrics"`
	ValidationErrors        string `json:"validationErrors"`
}

// NewAnalysisSections returns sections with every key set to NotAvailable.
func NewAnalysisSections() AnalysisSections {
	var s AnalysisSections
	for _, k := range AllSections() {
		s.Set(k, NotAvailable)
	}
	return s
}

func (s *AnalysisSections) field(k SectionKind) *string {
	switch k {
	case SectionMethodology:
		return &s.Methodology
	case SectionSimilarProjects:
		return &s.SimilarProjects
	case SectionDetailedFindings:
		return &s.DetailedFindings
	case SectionPredictionRationale:
		return &s.PredictionRationale
	case SectionRiskFactors:
		return &s.RiskFactors
	case SectionArchitectureDescription:
		return &s.ArchitectureDescription
	case SectionSummaryMetrics:
		return &s.SummaryMetrics
	case SectionValidationErrors:
		return &s.ValidationErrors
	}
	return nil
}

func (s AnalysisSections) Get(k SectionKind) string {
	if p := s.field(k); p != nil {
		return *p
	}
	return NotAvailable
}

func (s *AnalysisSections) Set(k SectionKind, text string) {
	if p := s.field(k); p != nil {
		*p = text
	}
}

// Present reports whether the section carries real content.
func (s AnalysisSections) Present(k SectionKind) bool {
	v := s.Get(k)
	return v != "" && v != NotAvailable
}

// Confidence is the narrative's self-reported confidence level.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// Score maps the confidence level onto a 0-100 scale.
func (c Confidence) Score() int {
	switch c {
	case ConfidenceHigh:
		return 85
	case ConfidenceMedium:
		return 65
	case ConfidenceLow:
		return 45
	default:
		return 0
	}
}

// ServiceCost is one entry of the TOP_SERVICES block.
type ServiceCost struct {
	Name        string `json:"name"`
	MonthlyCost string `json:"monthlyCost"`
	UpfrontCost string `json:"upfrontCost,omitempty"`
}

// ArchitectureBreakdown splits the architecture description into layers.
type ArchitectureBreakdown struct {
	NetworkFoundation    string `json:"networkFoundation"`
	ComputeLayer         string `json:"computeLayer"`
	DataLayer            string `json:"dataLayer"`
	SecurityComponents   string `json:"securityComponents"`
	IntegrationPoints    string `json:"integrationPoints"`
	ScalingElements      string `json:"scalingElements"`
	ManagementTools      string `json:"managementTools"`
	CompleteArchitecture string `json:"completeArchitecture"`
}

// Metrics holds the scalar and list values pulled from the narrative.
type Metrics struct {
	PredictedARR       string                `json:"predictedArr"`
	MRR                string                `json:"mrr"`
	LaunchDate         string                `json:"launchDate"`
	PredictedDuration  string                `json:"predictedProjectDuration"`
	Confidence         Confidence            `json:"confidence"`
	ConfidenceScore    int                   `json:"confidenceScore"`
	ConfidenceFactors  []string              `json:"confidenceFactors"`
	TopServices        []ServiceCost         `json:"topServices"`
	TopServicesDisplay string                `json:"topServicesDisplay"`
	Architecture       ArchitectureBreakdown `json:"architecture"`
}

// AnalysisResult is the full structured output of narrative extraction.
type AnalysisResult struct {
	Sections         AnalysisSections `json:"sections"`
	Metrics          Metrics          `json:"metrics"`
	FormattedSummary string           `json:"formattedSummary"`
}
