package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUpstream = errors.New("ai_upstream")

// ParseError marks model output that could not be decoded into the shape the
// prompt asked for. Callers decide whether it is fatal (synchronous analysis)
// or skippable (batch screening).
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ai output parse error: %s", e.Reason)
}

// DecodeObject decodes model output expected to be a single JSON object.
// Fenced code blocks are unwrapped and a single-element array is accepted in
// place of a bare object. Any other shape is a ParseError.
func DecodeObject(text string, out any) error {
	cleaned := stripFences(text)
	if cleaned == "" {
		return &ParseError{Reason: "empty output"}
	}

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return &ParseError{Reason: "not valid JSON"}
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
			return &ParseError{Reason: "array output with no object"}
		}
		raw = items[0]
		trimmed = strings.TrimSpace(string(raw))
	}
	if !strings.HasPrefix(trimmed, "{") {
		return &ParseError{Reason: "output is not an object"}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Reason: "object does not match schema"}
	}
	return nil
}

// DecodeArray decodes model output expected to be a JSON array.
func DecodeArray(text string, out any) error {
	cleaned := stripFences(text)
	if cleaned == "" {
		return &ParseError{Reason: "empty output"}
	}
	if !strings.HasPrefix(cleaned, "[") {
		return &ParseError{Reason: "output is not an array"}
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &ParseError{Reason: "array does not match schema"}
	}
	return nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
