package domain

import (
	"fmt"
	"strings"
)

// Property is one node property with its stored type.
type Property struct {
	Name string
	Type string
}

// RelTriple is one directed relationship pattern in the graph.
type RelTriple struct {
	Start string
	Type  string
	End   string
}

// Schema is an introspected snapshot of the graph's structure, rendered
// into language model prompts and consulted when validating generated
// statements.
type Schema struct {
	Labels        []string
	Relationships []RelTriple
	Properties    map[string][]Property
}

// PropertyType returns the stored type of a node property.
func (s *Schema) PropertyType(label, property string) (string, bool) {
	for _, p := range s.Properties[label] {
		if p.Name == property {
			return p.Type, true
		}
	}
	return "", false
}

// HasRelationship reports whether the directed pattern start-[type]->end
// exists in the graph. An empty label acts as a wildcard.
func (s *Schema) HasRelationship(start, relType, end string) bool {
	for _, r := range s.Relationships {
		if r.Type != relType {
			continue
		}
		if (start == "" || r.Start == start) && (end == "" || r.End == end) {
			return true
		}
	}
	return false
}

// HasRelationshipType reports whether any pattern carries the given
// relationship type, in either direction.
func (s *Schema) HasRelationshipType(relType string) bool {
	for _, r := range s.Relationships {
		if r.Type == relType {
			return true
		}
	}
	return false
}

// String renders the schema for inclusion in a prompt.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("Node properties:\n")
	for _, label := range s.Labels {
		props := s.Properties[label]
		if len(props) == 0 {
			continue
		}
		parts := make([]string, 0, len(props))
		for _, p := range props {
			parts = append(parts, fmt.Sprintf("%s: %s", p.Name, p.Type))
		}
		fmt.Fprintf(&b, "%s {%s}\n", label, strings.Join(parts, ", "))
	}
	b.WriteString("The relationships:\n")
	for _, r := range s.Relationships {
		fmt.Fprintf(&b, "(:%s)-[:%s]->(:%s)\n", r.Start, r.Type, r.End)
	}
	return b.String()
}
