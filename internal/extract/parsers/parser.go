// Package parsers turns free-text oracle replies into identification lines.
package parsers

import "strings"

// Parser converts one oracle reply into ordered, non-empty lines.
// ok is false when the reply carries no usable text.
type Parser interface {
	// Name returns the parser name used in configuration
	Name() string

	// Parse extracts the lines; lines[0] is the subject name
	Parse(reply string) (lines []string, ok bool)
}

// Registry manages reply parsers
type Registry struct {
	parsers  map[string]Parser
	fallback Parser
}

// NewRegistry creates a registry with the built-in parsers
func NewRegistry() *Registry {
	registry := &Registry{
		parsers: make(map[string]Parser),
	}

	lines := NewLineParser()
	registry.Register(lines)
	registry.Register(NewJSONParser())

	registry.fallback = lines

	return registry
}

// Register registers a parser under its name
func (r *Registry) Register(p Parser) {
	r.parsers[strings.ToLower(p.Name())] = p
}

// Find returns the named parser, or the line parser when the name is unknown
func (r *Registry) Find(name string) Parser {
	if p, ok := r.parsers[strings.ToLower(name)]; ok {
		return p
	}
	return r.fallback
}
