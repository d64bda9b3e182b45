package parsers

import (
	"encoding/json"
	"strings"
)

// JSONParser reads structured replies of the form {"name": "...", "details": [...]}.
// Replies that are not that shape are handed to the line parser.
type JSONParser struct {
	fallback *LineParser
}

type structuredReply struct {
	Name    string          `json:"name"`
	Details json.RawMessage `json:"details"`
}

// NewJSONParser creates a JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{fallback: NewLineParser()}
}

// Name returns the parser name
func (p *JSONParser) Name() string {
	return "json"
}

// Parse decodes the structured reply, tolerating a surrounding markdown code fence
func (p *JSONParser) Parse(reply string) ([]string, bool) {
	body := stripCodeFence(reply)

	var sr structuredReply
	if err := json.Unmarshal([]byte(body), &sr); err != nil || strings.TrimSpace(sr.Name) == "" {
		return p.fallback.Parse(reply)
	}

	lines := []string{strings.TrimSpace(sr.Name)}
	for _, detail := range decodeDetails(sr.Details) {
		if detailLines, ok := p.fallback.Parse(detail); ok {
			lines = append(lines, detailLines...)
		}
	}
	return lines, true
}

// decodeDetails accepts either a string or an array of strings
func decodeDetails(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
