// Package similarity implements the fuzzy pre-filter that turns a
// free-text dish description into a ranked candidate-id list gated by a
// passing threshold.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/crave-labs/menugraph/internal/domain"
)

// CandidateLimit caps how many candidates one search may consume.
const CandidateLimit = 1000

// Gate filters hybrid-search candidates by a passing threshold.
type Gate struct {
	searcher Searcher
	limit    int
}

// NewGate creates a similarity gate over a hybrid searcher.
func NewGate(searcher Searcher) *Gate {
	return &Gate{searcher: searcher, limit: CandidateLimit}
}

// Scores returns the candidates scoring at or above the threshold,
// ordered by descending score. Empty search text skips the search
// entirely and returns nil.
//
// The early exit below requires a descending-sorted list; the backend
// does not guarantee one, so the precondition is enforced here.
func (g *Gate) Scores(ctx context.Context, text string, threshold float64) ([]domain.Scored, error) {
	if text == "" {
		return nil, nil
	}

	candidates, err := g.searcher.Search(ctx, text, g.limit)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	passing := make([]domain.Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < threshold {
			break
		}
		passing = append(passing, c)
	}
	if len(passing) == 0 {
		return nil, nil
	}
	return passing, nil
}
