// internal/models/opportunity.go
package models

// DefaultQueryLimit is used when an opportunity does not carry its own row limit.
const DefaultQueryLimit = 200

// OpportunityInput describes the sales opportunity a query is synthesized for.
type OpportunityInput struct {
	CustomerName        string `json:"customerName"`
	Region              string `json:"region"`
	CloseDate           string `json:"closeDate"`
	OppName             string `json:"oppName"`
	Description         string `json:"oppDescription"`
	Industry            string `json:"industry,omitempty"`
	CustomerSegment     string `json:"customerSegment,omitempty"`
	PartnerName         string `json:"partnerName,omitempty"`
	ActivityFocus       string `json:"activityFocus,omitempty"`
	BusinessDescription string `json:"businessDescription,omitempty"`
	MigrationPhase      string `json:"migrationPhase,omitempty"`
	QueryLimit          int    `json:"queryLimit,omitempty"`
}

// RowLimit returns the configured query limit or DefaultQueryLimit.
func (o OpportunityInput) RowLimit() int {
	if o.QueryLimit > 0 {
		return o.QueryLimit
	}
	return DefaultQueryLimit
}

type SizeTier string

const (
	SizeSMB        SizeTier = "smb"
	SizeMedium     SizeTier = "medium"
	SizeEnterprise SizeTier = "enterprise"
)

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

type DataVolume string

const (
	DataVolumeLow      DataVolume = "low"
	DataVolumeStandard DataVolume = "standard"
	DataVolumeHigh     DataVolume = "high"
)

type OptimizationLevel string

const (
	OptimizationConservative OptimizationLevel = "conservative"
	OptimizationBalanced     OptimizationLevel = "balanced"
	OptimizationAggressive   OptimizationLevel = "aggressive"
)

type RegionBucket string

const (
	RegionAmericas RegionBucket = "americas"
	RegionEurope   RegionBucket = "europe"
	RegionAPAC     RegionBucket = "apac"
)

// Customer segments derived from size signals.
const (
	SegmentCommercial = "commercial"
	SegmentEnterprise = "enterprise"
	SegmentSMB        = "smb"
)

// OpportunityCharacteristics is computed once per request and never mutated.
type OpportunityCharacteristics struct {
	Size            SizeTier          `json:"size"`
	Complexity      Complexity        `json:"complexity"`
	ComplexityScore int               `json:"complexityScore"`
	CustomerSegment string            `json:"customerSegment"`
	DataVolume      DataVolume        `json:"dataVolume"`
	Optimization    OptimizationLevel `json:"optimizationLevel"`
	Region          RegionBucket      `json:"regionBucket"`
}
