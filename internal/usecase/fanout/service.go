// Package fanout compiles one graph query per extracted entity and runs
// them concurrently, collecting one result table per entity.
package fanout

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/usecase/compile"
)

// Service runs the per-entity query fan-out.
type Service struct {
	gate      Gate
	executor  Executor
	logger    *zap.Logger
	tolerance float64
}

// New creates a fan-out service. Tolerance widens price filters to
// absorb small price differences.
func New(gate Gate, executor Executor, logger *zap.Logger, tolerance float64) *Service {
	return &Service{gate: gate, executor: executor, logger: logger, tolerance: tolerance}
}

// Execute compiles and runs one query per entity concurrently and
// returns the non-empty result tables, each tagged with its entity's
// 1-based position in the question. A failing entity is logged and
// skipped; its siblings run to completion.
func (s *Service) Execute(ctx context.Context, entities []domain.Entity, threshold float64) []domain.EntityTable {
	results := make([]*domain.EntityTable, len(entities))

	var g errgroup.Group
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			table, err := s.runEntity(ctx, i+1, e, threshold)
			if err != nil {
				s.logger.Warn("entity query failed",
					zap.Int("entity_index", i+1),
					zap.Error(err))
				return nil
			}
			results[i] = table
			return nil
		})
	}
	_ = g.Wait()

	tables := make([]domain.EntityTable, 0, len(results))
	for _, t := range results {
		if t != nil {
			tables = append(tables, *t)
		}
	}
	return tables
}

// runEntity compiles, gates and executes a single entity's query.
// Returns a nil table when the entity matches nothing.
func (s *Service) runEntity(ctx context.Context, index int, e domain.Entity, threshold float64) (*domain.EntityTable, error) {
	q := compile.Compile(e, s.tolerance)

	if q.SearchText != "" {
		scores, err := s.gate.Scores(ctx, q.SearchText, threshold)
		if err != nil {
			return nil, err
		}
		// Candidate scores narrow the match when present. With none
		// passing, the query still runs on the remaining filters.
		if len(scores) > 0 {
			scored := make([]any, 0, len(scores))
			for _, sc := range scores {
				scored = append(scored, map[string]any{"id": sc.ID, "score": sc.Score})
			}
			q.Params[domain.ParamFoodScores] = scored
		} else {
			s.logger.Info("no candidate cleared the threshold, matching on filters only",
				zap.Int("entity_index", index))
		}
	}

	q = compile.Build(q)
	if q.Cypher == "" {
		return nil, nil
	}

	records, err := s.executor.Query(ctx, q.Cypher, q.Params)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Row, 0, len(records))
	for _, rec := range records {
		row, ok := domain.RowFromRecord(rec)
		if !ok {
			s.logger.Warn("skipping record without restaurant id",
				zap.Int("entity_index", index))
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &domain.EntityTable{Index: index, Rows: rows, Query: q}, nil
}
