package orchestrator

import (
	"context"

	"github.com/crave-labs/menugraph/internal/domain"
)

// Guardrail classifies whether a question is about food ordering or
// food details.
type Guardrail interface {
	Classify(ctx context.Context, question string) (bool, error)
}

// Extractor parses structured entities out of a food question.
type Extractor interface {
	Extract(ctx context.Context, question string) ([]domain.Entity, error)
}

// Fanout compiles and runs one graph query per entity.
type Fanout interface {
	Execute(ctx context.Context, entities []domain.Entity, threshold float64) []domain.EntityTable
}

// Aggregator merges per-entity tables into ranked deal records.
type Aggregator interface {
	Rank(tables []domain.EntityTable) []domain.DealRecord
}

// GeneralQuery runs the free-form statement stages. Each stage returns
// a partial state update carrying the next-action signal.
type GeneralQuery interface {
	Generate(ctx context.Context, state domain.State) domain.Update
	Validate(ctx context.Context, state domain.State) domain.Update
	Correct(ctx context.Context, state domain.State) domain.Update
	Execute(ctx context.Context, state domain.State) domain.Update
}
