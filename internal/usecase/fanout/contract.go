package fanout

import (
	"context"

	"github.com/crave-labs/menugraph/internal/domain"
)

// Gate supplies fuzzy dish-match candidates above a score threshold.
type Gate interface {
	Scores(ctx context.Context, text string, threshold float64) ([]domain.Scored, error)
}

// Executor runs a Cypher statement and returns raw result rows.
type Executor interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}
