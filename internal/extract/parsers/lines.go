package parsers

import "strings"

// LineParser splits a reply on line boundaries and drops blank lines
type LineParser struct{}

// NewLineParser creates a line parser
func NewLineParser() *LineParser {
	return &LineParser{}
}

// Name returns the parser name
func (p *LineParser) Name() string {
	return "lines"
}

// Parse splits on \n and \r\n, trims each line and keeps the non-empty ones
func (p *LineParser) Parse(reply string) ([]string, bool) {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil, false
	}
	return lines, true
}
