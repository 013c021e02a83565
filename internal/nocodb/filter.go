package nocodb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// filterExpression is the shape the oracle produces for list requests: an
// ordered list of predicate strings like "(Date,ge,exactDate,2025-03-01)".
// The store combines them with implicit AND semantics.
type filterExpression struct {
	Filters []string `json:"filters"`
}

// DecodeWhere turns a raw oracle filter response into the where query
// parameter. The input may be empty (no filter), a bare predicate string, or
// a JSON {"filters": [...]} object, possibly still wrapped in markdown code
// fences. Predicates are opaque: the only validation is that the expression
// decodes to a list of strings.
func DecodeWhere(raw string) (string, error) {
	s := stripFences(raw)
	if s == "" {
		return "", nil
	}
	if !strings.HasPrefix(s, "{") {
		// Already a plain where clause, e.g. "(Date,eq,exactDate,2025-04-10)".
		return s, nil
	}

	var expr filterExpression
	if err := json.Unmarshal([]byte(s), &expr); err != nil {
		return "", fmt.Errorf("nocodb: decoding filter expression: %w", err)
	}
	return strings.Join(expr.Filters, "~and"), nil
}

// stripFences removes a wrapping markdown code fence (``` or ```json) that
// the oracle sometimes adds despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
