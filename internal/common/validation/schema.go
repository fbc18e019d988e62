package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"opportunity-workers/internal/models"
)

// QueryContractSchema is the shape every generated query result must satisfy.
const QueryContractSchema = `{
  "type": "object",
  "required": ["sql_query"],
  "additionalProperties": false,
  "properties": {
    "sql_query": {"type": "string", "minLength": 1}
  }
}`

// OpportunityInputSchema checks job variables before synthesis. Every
// descriptive field is optional; absent values are rendered as placeholders.
const OpportunityInputSchema = `{
  "type": "object",
  "properties": {
    "customerName":        {"type": "string", "maxLength": 500},
    "region":              {"type": "string", "maxLength": 200},
    "closeDate":           {"type": "string", "maxLength": 100},
    "oppName":             {"type": "string", "maxLength": 500},
    "oppDescription":      {"type": "string", "maxLength": 20000},
    "industry":            {"type": "string"},
    "customerSegment":     {"type": "string"},
    "partnerName":         {"type": "string"},
    "activityFocus":       {"type": "string"},
    "businessDescription": {"type": "string"},
    "migrationPhase":      {"type": "string"},
    "queryLimit":          {"type": "integer", "minimum": 1, "maximum": 10000}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks document (any JSON-marshalable Go value) against schema.
func Validate(schema string, document interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidateQueryContract checks that sql forms a valid {"sql_query": ...} object.
func ValidateQueryContract(sql string) *ValidationResult {
	result, err := Validate(QueryContractSchema, models.QueryContract{SQLQuery: sql})
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}}}
	}
	return result
}

// ValidateInput validates job variables against schema.
func ValidateInput(input map[string]interface{}, schema string) *ValidationResult {
	result, err := Validate(schema, input)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}}}
	}
	return result
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
