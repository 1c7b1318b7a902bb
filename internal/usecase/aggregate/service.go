// Package aggregate outer-merges per-entity result tables on the shared
// restaurant key, derives total cost and mean similarity, and produces
// ranked, paginated deal records for the presentation layer.
package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/metrics"
)

// DefaultLimit caps output when the question names no explicit limit.
const DefaultLimit = 1000

// Service ranks and shapes merged entity tables.
type Service struct {
	logger       *zap.Logger
	defaultLimit int
}

// New creates an aggregation service.
func New(logger *zap.Logger) *Service {
	return &Service{logger: logger, defaultLimit: DefaultLimit}
}

// WithDefaultLimit overrides the default page size.
func (s *Service) WithDefaultLimit(n int) *Service {
	if n > 0 {
		s.defaultLimit = n
	}
	return s
}

// Rank merges the per-entity tables and returns ranked deal records.
//
// Pagination and ordering directives are read from the last entity's
// compiled query only. This is deliberate last-mentioned-entity
// precedence: in a multi-entity question the trailing clause is the one
// that carries "top 5" or "cheapest first".
func (s *Service) Rank(tables []domain.EntityTable) []domain.DealRecord {
	if len(tables) == 0 {
		return nil
	}

	ordered := make([]domain.EntityTable, len(tables))
	copy(ordered, tables)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Index < ordered[b].Index
	})
	intent := ordered[len(ordered)-1].Query.Intent

	merged := outerJoin(ordered)
	merged = dropDuplicates(merged)
	sortMerged(merged)

	limit := intent.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	// A pure "top-N by X" query must not be truncated before the
	// explicit ordering is applied, or the requested extreme could be
	// cut off. Everything else pages here, before shaping.
	if !intent.TopNByDirective && len(merged) > limit {
		merged = merged[:limit]
	}

	records := make([]domain.DealRecord, 0, len(merged))
	for _, m := range merged {
		rec, err := shapeRow(m)
		if err != nil {
			metrics.AggregateRowsSkipped.Inc()
			s.logger.Warn("skipping malformed merged row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records, intent.Directive)

	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
