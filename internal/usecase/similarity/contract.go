package similarity

import (
	"context"

	"github.com/crave-labs/menugraph/internal/domain"
)

// Searcher runs a hybrid lexical+vector similarity search and returns
// up to limit candidates. The backend is treated as a black box: callers
// must not assume the returned order.
type Searcher interface {
	Search(ctx context.Context, text string, limit int) ([]domain.Scored, error)
}
