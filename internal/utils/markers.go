package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineIssue describes a marked line whose payload could not be used.
type LineIssue struct {
	Line   int
	Reason string
}

// ParseMarkedLines decodes the JSON object following marker on every line that
// starts with it once surrounding whitespace is trimmed. Lines are 1-based in
// the returned issues. Empty payloads are ignored without an issue.
func ParseMarkedLines(lines []string, marker string) ([]map[string]any, []LineIssue) {
	var records []map[string]any
	var issues []LineIssue
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, marker) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, marker))
		if payload == "" {
			continue
		}
		obj, err := DecodeObject([]byte(payload))
		if err != nil {
			issues = append(issues, LineIssue{Line: i + 1, Reason: err.Error()})
			continue
		}
		records = append(records, obj)
	}
	return records, issues
}

// DecodeObject decodes exactly one JSON object, keeping numbers as
// json.Number. Anything after the object is an error.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a json object, got %T", v)
	}
	return obj, nil
}

// SplitLines splits text on newlines, tolerating CRLF.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
