package generalquery

import (
	"context"

	"github.com/crave-labs/menugraph/internal/domain"
)

// LLM generates, reviews and corrects Cypher statements.
type LLM interface {
	GenerateCypher(ctx context.Context, question string, schema *domain.Schema) (string, error)
	ReviewCypher(ctx context.Context, question, cypher string, schema *domain.Schema) (domain.CypherReview, error)
	CorrectCypher(ctx context.Context, question, cypher string, problems []string, schema *domain.Schema) (string, error)
}

// Executor runs a Cypher statement and returns raw result rows.
type Executor interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}
