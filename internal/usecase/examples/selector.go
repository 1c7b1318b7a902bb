// Package examples selects few-shot question/statement pairs for
// Cypher generation prompts, preferring pairs similar to the incoming
// question and falling back to a curated static set.
package examples

import (
	"context"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

// DefaultCount is how many pairs a prompt receives.
const DefaultCount = 5

// Source fetches the k stored pairs most similar to the question.
type Source interface {
	Examples(ctx context.Context, question string, k int) ([]domain.QAExample, error)
}

// Selector picks few-shot pairs per question.
type Selector struct {
	source Source
	count  int
	logger *zap.Logger
}

// NewSelector creates a selector. Source may be nil; the static set is
// then always used.
func NewSelector(source Source, logger *zap.Logger) *Selector {
	return &Selector{source: source, count: DefaultCount, logger: logger}
}

// Select returns up to DefaultCount pairs for the question. A source
// failure degrades to the static set rather than failing generation.
func (s *Selector) Select(ctx context.Context, question string) []domain.QAExample {
	if s.source != nil {
		pairs, err := s.source.Examples(ctx, question, s.count)
		if err != nil {
			s.logger.Warn("example lookup failed, using static set", zap.Error(err))
		} else if len(pairs) > 0 {
			return pairs
		}
	}
	if len(staticExamples) > s.count {
		return staticExamples[:s.count]
	}
	return staticExamples
}

// staticExamples covers the common question shapes against the food
// graph.
var staticExamples = []domain.QAExample{
	{
		Question: "Which restaurants deliver biryani?",
		Cypher:   "MATCH (r:Restaurant)-[:DELIVERS]->(f:Food) WHERE toLower(f.name) CONTAINS 'biryani' RETURN DISTINCT r.name AS restaurant",
	},
	{
		Question: "How many vegetarian dishes are there?",
		Cypher:   "MATCH (f:Food) WHERE f.type = 'veg' RETURN count(f) AS dishes",
	},
	{
		Question: "What is the phone number of Dominos?",
		Cypher:   "MATCH (r:Restaurant) WHERE toLower(r.name) CONTAINS 'dominos' RETURN r.phone_no AS phone_number",
	},
	{
		Question: "List the five cheapest dishes with their restaurants.",
		Cypher:   "MATCH (r:Restaurant)-[:DELIVERS]->(f:Food) RETURN f.name AS food, f.price AS price, r.name AS restaurant ORDER BY f.price ASC LIMIT 5",
	},
	{
		Question: "Which restaurant has the best delivery rating?",
		Cypher:   "MATCH (r:Restaurant) WHERE r.delivery_rating <> 'not_available' RETURN r.name AS restaurant, r.delivery_rating AS delivery_rating ORDER BY toFloatOrNull(r.delivery_rating) DESC LIMIT 1",
	},
	{
		Question: "What bestseller dishes does Burger King offer under 300?",
		Cypher:   "MATCH (r:Restaurant)-[:DELIVERS]->(f:Food) WHERE toLower(r.name) CONTAINS 'burger king' AND f.bestseller = true AND f.price <= 300 RETURN f.name AS food, f.price AS price",
	},
}
