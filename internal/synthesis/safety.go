package synthesis

import (
	"errors"
	"fmt"
	"strings"

	"opportunity-workers/internal/common/metrics"
)

var ErrUnsafeQuery = errors.New("QUERY_SAFETY_REJECTED")

// DeniedPatterns are matched case-insensitively as plain substrings.
var DeniedPatterns = []string{";--", "drop table", "delete from", "update set"}

// SafetyError names the denylisted pattern found in a query. It is terminal.
type SafetyError struct {
	Pattern string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("query rejected: contains denied pattern %q", e.Pattern)
}

func (e *SafetyError) Is(target error) bool { return target == ErrUnsafeQuery }

// ValidateSafety returns a *SafetyError for the first denied pattern present.
func ValidateSafety(query string) error {
	lower := strings.ToLower(query)
	for _, p := range DeniedPatterns {
		if strings.Contains(lower, p) {
			metrics.QuerySafetyRejections.WithLabelValues(p).Inc()
			return &SafetyError{Pattern: p}
		}
	}
	return nil
}
