// Package oracle wraps the hosted language model used for free-text to
// structured-payload extraction and for summarization.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles understood by the oracle.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string
	Content string
}

// System is shorthand for a system-role message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User is shorthand for a user-role message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Oracle produces a single text completion for an ordered list of messages.
type Oracle interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ParseError reports a completion that could not be decoded into the expected
// JSON shape. The raw text is carried for logging; flows report the failure
// and stay in their awaiting state so the user can retry.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oracle: response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StripFences cleans up a completion that the model wrapped in markdown code
// fences (```json ... ```) despite instructions, and trims any stray text
// around the outermost JSON value.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if junk remains around it.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start != -1 && end > start && (start == 0 || !strings.ContainsAny(s[:start], "{[")) {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// Decode strips fences from a completion and unmarshals it into v. A decoding
// failure is returned as a *ParseError carrying the raw response.
func Decode(raw string, v any) error {
	clean := StripFences(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}
