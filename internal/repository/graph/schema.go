package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/crave-labs/menugraph/internal/domain"
)

// LoadSchema introspects node labels, node properties and relationship
// patterns from the connected graph.
func (c *Client) LoadSchema(ctx context.Context) (*domain.Schema, error) {
	s := &domain.Schema{Properties: make(map[string][]domain.Property)}

	rows, err := c.Query(ctx, "CALL db.labels() YIELD label RETURN label", nil)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	for _, row := range rows {
		if label, ok := row["label"].(string); ok {
			s.Labels = append(s.Labels, label)
		}
	}

	rows, err = c.Query(ctx,
		`CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`, nil)
	if err != nil {
		return nil, fmt.Errorf("load node properties: %w", err)
	}
	for _, row := range rows {
		label := firstString(row["nodeLabels"])
		name, _ := row["propertyName"].(string)
		if label == "" || name == "" {
			continue
		}
		s.Properties[label] = append(s.Properties[label], domain.Property{
			Name: name,
			Type: joinStrings(row["propertyTypes"]),
		})
	}

	rows, err = c.Query(ctx,
		`MATCH (a)-[rel]->(b)
WITH DISTINCT labels(a)[0] AS start, type(rel) AS relType, labels(b)[0] AS end
RETURN start, relType, end`, nil)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	for _, row := range rows {
		start, _ := row["start"].(string)
		relType, _ := row["relType"].(string)
		end, _ := row["end"].(string)
		if start == "" || relType == "" || end == "" {
			continue
		}
		s.Relationships = append(s.Relationships, domain.RelTriple{Start: start, Type: relType, End: end})
	}

	return s, nil
}

func firstString(v any) string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	str, _ := items[0].(string)
	return str
}

func joinStrings(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			parts = append(parts, str)
		}
	}
	return strings.Join(parts, "|")
}
