// pkg/registry/schema.go
package registry

// PromptRegistry is the on-disk catalog of prompt templates.
type PromptRegistry struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"lastUpdated"`
	Prompts     []PromptTemplate `json:"prompts"`
}

// PromptTemplate is a system text plus a user template with {{name}} placeholders.
type PromptTemplate struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	ModelID      string   `json:"modelId"`
	SystemText   string   `json:"systemText"`
	UserTemplate string   `json:"userTemplate"`
	MaxTokens    int      `json:"maxTokens"`
	Tags         []string `json:"tags"`
}
