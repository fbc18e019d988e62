package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"opportunity-workers/internal/models"
)

func TestAnalyzeCharacteristics(t *testing.T) {
	tests := []struct {
		name  string
		input models.OpportunityInput
		want  models.OpportunityCharacteristics
	}{
		{
			name: "large scale mainframe migration in Germany",
			input: models.OpportunityInput{
				OppName:     "Core Platform",
				Description: "Large scale migration of legacy mainframe to multi-cloud Kubernetes with real-time analytics",
				Region:      "Germany",
			},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeEnterprise,
				Complexity:      models.ComplexityHigh,
				ComplexityScore: 7,
				CustomerSegment: models.SegmentEnterprise,
				DataVolume:      models.DataVolumeHigh,
				Optimization:    models.OptimizationAggressive,
				Region:          models.RegionEurope,
			},
		},
		{
			name: "startup analytics in Singapore",
			input: models.OpportunityInput{
				OppName:     "Startup analytics",
				Description: "Container based analytics with a data lake",
				Region:      "Singapore",
			},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeSMB,
				Complexity:      models.ComplexityMedium,
				ComplexityScore: 3,
				CustomerSegment: models.SegmentSMB,
				DataVolume:      models.DataVolumeLow,
				Optimization:    models.OptimizationBalanced,
				Region:          models.RegionAPAC,
			},
		},
		{
			name: "enterprise and smb signals tie to medium",
			input: models.OpportunityInput{
				Description: "Enterprise tooling for a small business",
				Region:      "North America",
			},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeMedium,
				Complexity:      models.ComplexityLow,
				CustomerSegment: models.SegmentCommercial,
				DataVolume:      models.DataVolumeStandard,
				Optimization:    models.OptimizationConservative,
				Region:          models.RegionAmericas,
			},
		},
		{
			name:  "empty text",
			input: models.OpportunityInput{Region: "EU-West"},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeMedium,
				Complexity:      models.ComplexityMedium,
				CustomerSegment: models.SegmentCommercial,
				DataVolume:      models.DataVolumeStandard,
				Optimization:    models.OptimizationBalanced,
				Region:          models.RegionEurope,
			},
		},
		{
			name:  "plural smb term",
			input: models.OpportunityInput{Description: "Cloud platform for fintech startups"},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeSMB,
				Complexity:      models.ComplexityLow,
				CustomerSegment: models.SegmentSMB,
				DataVolume:      models.DataVolumeLow,
				Optimization:    models.OptimizationConservative,
				Region:          models.RegionAmericas,
			},
		},
		{
			name:  "plural and inflected vocabulary",
			input: models.OpportunityInput{Description: "Migrations of legacy containers and microservices to enterprises"},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeEnterprise,
				Complexity:      models.ComplexityMedium,
				ComplexityScore: 4,
				CustomerSegment: models.SegmentEnterprise,
				DataVolume:      models.DataVolumeHigh,
				Optimization:    models.OptimizationBalanced,
				Region:          models.RegionAmericas,
			},
		},
		{
			name: "ai does not match inside other words",
			input: models.OpportunityInput{
				Description: "Maintain email domain",
			},
			want: models.OpportunityCharacteristics{
				Size:            models.SizeMedium,
				Complexity:      models.ComplexityLow,
				CustomerSegment: models.SegmentCommercial,
				DataVolume:      models.DataVolumeStandard,
				Optimization:    models.OptimizationConservative,
				Region:          models.RegionAmericas,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeCharacteristics(tt.input))
		})
	}
}

func TestAnalyzeCharacteristics_Deterministic(t *testing.T) {
	in := models.OpportunityInput{Description: "Global AI transformation with hybrid microservices", Region: "APJ"}
	first := AnalyzeCharacteristics(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AnalyzeCharacteristics(in))
	}
}

func TestRegionBucketFor(t *testing.T) {
	tests := map[string]models.RegionBucket{
		"":               models.RegionAmericas,
		"US East":        models.RegionAmericas,
		"LATAM":          models.RegionAmericas,
		"Europe":         models.RegionEurope,
		"EMEA":           models.RegionEurope,
		"France":         models.RegionEurope,
		"United Kingdom": models.RegionEurope,
		"APAC":           models.RegionAPAC,
		"Asia Pacific":   models.RegionAPAC,
		"Japan":          models.RegionAPAC,
		"Australia":      models.RegionAPAC,
	}
	for region, want := range tests {
		t.Run(region, func(t *testing.T) {
			assert.Equal(t, want, RegionBucketFor(region))
		})
	}
}
