package synthesis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-workers/internal/models"
	"opportunity-workers/pkg/registry"
)

func sampleTemplate() registry.PromptTemplate {
	return registry.PromptTemplate{
		ID:           "query-synthesis",
		ModelID:      "anthropic.claude-3-5-sonnet-20240620-v1:0",
		SystemText:   "Generate SQL for {{CustomerName}} ({{optimizationLevel}}, {{dataVolume}}).",
		UserTemplate: "Opportunity: {{oppName}}\nRegion: {{region}}\nClose: {{closeDate}}\nIndustry: {{industry}}\nLimit: {{queryLimit}}\nRequest: {{requestId}} at {{timestamp}}\nDesc: {{oppDescription}}\nExtra: {{ unknownField }}",
		MaxTokens:    4096,
	}
}

func sampleOpportunity() models.OpportunityInput {
	return models.OpportunityInput{
		CustomerName: "Acme GmbH",
		Region:       "Germany",
		CloseDate:    "2025-06-30",
		OppName:      "Mainframe exit",
		Description:  "Large scale migration of legacy mainframe",
	}
}

func TestBuildPayload(t *testing.T) {
	in := sampleOpportunity()
	c := AnalyzeCharacteristics(in)
	meta := RequestMeta{RequestID: "req-1", Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}

	p, err := BuildPayload(sampleTemplate(), in, c, meta)
	require.NoError(t, err)

	assert.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", p.ModelID)
	assert.Equal(t, 4096, p.InferenceConfig.MaxTokens)
	assert.Zero(t, p.InferenceConfig.Temperature)

	system := p.SystemText()
	assert.True(t, strings.HasPrefix(system, "Generate SQL for Acme GmbH (balanced, high)."))
	assert.True(t, strings.HasSuffix(system, OptimizationGuidance))

	user := p.UserText()
	assert.Contains(t, user, "Opportunity: Mainframe exit")
	assert.Contains(t, user, "Region: Germany")
	assert.Contains(t, user, "Industry: Not specified")
	assert.Contains(t, user, "Limit: 200")
	assert.Contains(t, user, "Request: req-1 at 2025-01-02T03:04:05Z")
	assert.Contains(t, user, "Extra: Not specified")
	assert.NotContains(t, user, "{{")
	assert.NotContains(t, system, "{{")
}

func TestBuildPayload_WireShape(t *testing.T) {
	p, err := BuildPayload(sampleTemplate(), sampleOpportunity(), models.OpportunityCharacteristics{}, RequestMeta{})
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Contains(t, wire, "modelId")
	assert.Contains(t, wire, "system")
	assert.Contains(t, wire, "messages")

	cfg := wire["inferenceConfig"].(map[string]interface{})
	assert.EqualValues(t, 4096, cfg["maxTokens"])
	assert.EqualValues(t, 0, cfg["temperature"])

	msg := wire["messages"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "user", msg["role"])
}

func TestBuildPayload_GuidanceIsUnconditional(t *testing.T) {
	conservative := models.OpportunityCharacteristics{Optimization: models.OptimizationConservative}
	aggressive := models.OpportunityCharacteristics{Optimization: models.OptimizationAggressive}
	tmpl := registry.PromptTemplate{ModelID: "m", UserTemplate: "u"}

	a, err := BuildPayload(tmpl, models.OpportunityInput{}, conservative, RequestMeta{})
	require.NoError(t, err)
	b, err := BuildPayload(tmpl, models.OpportunityInput{}, aggressive, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, OptimizationGuidance, a.SystemText())
	assert.Equal(t, a.SystemText(), b.SystemText())
}

func TestBuildPayload_MaxTokensBounds(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMaxTokens},
		{-5, DefaultMaxTokens},
		{2000, 2000},
		{50000, MaxTokensCeiling},
	}
	for _, tt := range tests {
		tmpl := registry.PromptTemplate{ModelID: "m", UserTemplate: "u", MaxTokens: tt.in}
		p, err := BuildPayload(tmpl, models.OpportunityInput{}, models.OpportunityCharacteristics{}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.InferenceConfig.MaxTokens, "maxTokens %d", tt.in)
	}
}

func TestBuildPayload_InvalidTemplate(t *testing.T) {
	_, err := BuildPayload(registry.PromptTemplate{ID: "x", UserTemplate: "u"}, models.OpportunityInput{}, models.OpportunityCharacteristics{}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = BuildPayload(registry.PromptTemplate{ID: "x", ModelID: "m"}, models.OpportunityInput{}, models.OpportunityCharacteristics{}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestSubstitute(t *testing.T) {
	values := map[string]string{"region": "EMEA", "oppname": "  "}
	assert.Equal(t, "EMEA / Not specified / Not specified / {single}",
		Substitute("{{Region}} / {{oppName}} / {{}} / {single}", values))
}
