// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var ErrPromptNotFound = errors.New("PROMPT_NOT_FOUND")

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)

func LoadRegistry(path string) (*PromptRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg PromptRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse prompt registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the template with the given id.
func (r *PromptRegistry) Find(id string) (PromptTemplate, error) {
	for _, p := range r.Prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return PromptTemplate{}, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
}

// ApplyDefaults fills modelId and maxTokens on templates that leave them unset.
func (r *PromptRegistry) ApplyDefaults(modelID string, maxTokens int) {
	for i := range r.Prompts {
		if r.Prompts[i].ModelID == "" {
			r.Prompts[i].ModelID = modelID
		}
		if r.Prompts[i].MaxTokens == 0 {
			r.Prompts[i].MaxTokens = maxTokens
		}
	}
}

// Validate checks ids, model ids and placeholder syntax for every template.
func (r *PromptRegistry) Validate() error {
	if len(r.Prompts) == 0 {
		return errors.New("registry contains no prompts")
	}
	ids := make(map[string]bool, len(r.Prompts))
	for _, p := range r.Prompts {
		if p.ID == "" {
			return errors.New("prompt missing required field: id")
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate prompt id: %s", p.ID)
		}
		ids[p.ID] = true

		if p.ModelID == "" {
			return fmt.Errorf("prompt %s missing required field: modelId", p.ID)
		}
		if strings.TrimSpace(p.UserTemplate) == "" {
			return fmt.Errorf("prompt %s missing required field: userTemplate", p.ID)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("prompt %s has negative maxTokens", p.ID)
		}
		for _, text := range []string{p.SystemText, p.UserTemplate} {
			if err := checkBraces(text); err != nil {
				return fmt.Errorf("prompt %s: %w", p.ID, err)
			}
		}
	}
	return nil
}

// Placeholders lists the distinct placeholder names used by the template.
func (p PromptTemplate) Placeholders() []string {
	seen := map[string]bool{}
	for _, text := range []string{p.SystemText, p.UserTemplate} {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// checkBraces rejects "{{" that is not closed by a well-formed placeholder.
func checkBraces(text string) error {
	stripped := placeholderPattern.ReplaceAllString(text, "")
	if i := strings.Index(stripped, "{{"); i >= 0 {
		end := i + 20
		if end > len(stripped) {
			end = len(stripped)
		}
		return fmt.Errorf("malformed placeholder near %q", stripped[i:end])
	}
	return nil
}
