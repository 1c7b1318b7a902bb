// Package generalquery answers questions the structured path cannot: it
// generates a Cypher statement from the question, validates it against
// the live graph, corrects it when validation finds problems, and
// executes it once clean.
package generalquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

const (
	stepGenerate = "generate_cypher"
	stepValidate = "validate_cypher"
	stepCorrect  = "correct_cypher"
	stepExecute  = "execute_cypher"
)

// Service runs the generate/validate/correct/execute stages. Each stage
// returns a partial state update carrying the next-action signal; the
// orchestrator owns the loop and the correction bound.
type Service struct {
	llm      LLM
	executor Executor
	schema   *domain.Schema
	logger   *zap.Logger
}

// New creates a general-query service over an introspected schema
// snapshot.
func New(llm LLM, executor Executor, schema *domain.Schema, logger *zap.Logger) *Service {
	return &Service{llm: llm, executor: executor, schema: schema, logger: logger}
}

// Generate produces a candidate statement from the question.
func (s *Service) Generate(ctx context.Context, state domain.State) domain.Update {
	cypher, err := s.llm.GenerateCypher(ctx, state.Question, s.schema)
	if err != nil {
		s.logger.Error("cypher generation failed", zap.String("run_id", state.RunID), zap.Error(err))
		return reject(domain.MsgTemporaryFailure, stepGenerate)
	}
	cypher = strings.TrimSpace(cypher)
	if cypher == "" {
		return reject(domain.MsgNoResult, stepGenerate)
	}
	return domain.Update{
		Next:   domain.ActionValidate,
		Cypher: &cypher,
		Steps:  []string{stepGenerate},
	}
}

// Validate checks the candidate statement three ways: a syntax probe
// against the live graph, relationship-direction verification against
// the schema, and a semantic review whose reported literal filters are
// checked for existence in the database. All problem sources are
// collected before routing so a single correction sees every defect.
// A filter literal absent from the database is unanswerable and
// terminates with the no-result message.
func (s *Service) Validate(ctx context.Context, state domain.State) domain.Update {
	cypher := state.Cypher
	var problems []string

	if _, err := s.executor.Query(ctx, "EXPLAIN "+cypher, nil); err != nil {
		if !errors.Is(err, domain.ErrQuerySyntax) {
			s.logger.Error("syntax probe failed", zap.String("run_id", state.RunID), zap.Error(err))
			return reject(domain.MsgTemporaryFailure, stepValidate)
		}
		problems = append(problems, err.Error())
	}

	switch corrected := correctDirections(cypher, s.schema); corrected {
	case "":
		problems = append(problems, "the statement uses a relationship the graph does not contain")
	case cypher:
	default:
		s.logger.Info("flipped relationship direction", zap.String("run_id", state.RunID))
		cypher = corrected
	}

	review, err := s.llm.ReviewCypher(ctx, state.Question, cypher, s.schema)
	if err != nil {
		s.logger.Error("cypher review failed", zap.String("run_id", state.RunID), zap.Error(err))
		return reject(domain.MsgTemporaryFailure, stepValidate)
	}
	problems = append(problems, review.Errors...)

	if err := s.checkFilters(ctx, review.Filters); err != nil {
		if errors.Is(err, domain.ErrValueMapping) {
			s.logger.Info("filter value absent from database",
				zap.String("run_id", state.RunID), zap.Error(err))
			return reject(domain.MsgNoResult, stepValidate)
		}
		s.logger.Error("filter check failed", zap.String("run_id", state.RunID), zap.Error(err))
		return reject(domain.MsgTemporaryFailure, stepValidate)
	}

	if len(problems) > 0 {
		return correctWith(cypher, problems)
	}
	return domain.Update{
		Next:   domain.ActionExecute,
		Cypher: &cypher,
		Steps:  []string{stepValidate},
	}
}

// Correct regenerates the statement from the recorded problems.
func (s *Service) Correct(ctx context.Context, state domain.State) domain.Update {
	cypher, err := s.llm.CorrectCypher(ctx, state.Question, state.Cypher, state.CypherErrors, s.schema)
	if err != nil {
		s.logger.Error("cypher correction failed", zap.String("run_id", state.RunID), zap.Error(err))
		return reject(domain.MsgTemporaryFailure, stepCorrect)
	}
	cypher = strings.TrimSpace(cypher)
	none := []string{}
	return domain.Update{
		Next:         domain.ActionValidate,
		Cypher:       &cypher,
		CypherErrors: &none,
		Steps:        []string{stepCorrect},
	}
}

// Execute runs the validated statement and wraps the rows, or the
// no-result message when the graph returns nothing.
func (s *Service) Execute(ctx context.Context, state domain.State) domain.Update {
	rows, err := s.executor.Query(ctx, state.Cypher, nil)
	if err != nil {
		s.logger.Error("cypher execution failed", zap.String("run_id", state.RunID), zap.Error(err))
		return reject(domain.MsgTemporaryFailure, stepExecute)
	}

	var answer domain.Answer
	if len(rows) == 0 {
		answer = domain.MessageAnswer(domain.MsgNoResult)
	} else {
		answer = domain.RowsAnswer(rows)
	}
	return domain.Update{
		Next:   domain.ActionReturn,
		Answer: &answer,
		Steps:  []string{stepExecute},
	}
}

// checkFilters verifies that every string-typed literal filter occurs in
// the database, returning an error wrapping ErrValueMapping for the
// first absent literal. Non-string properties are skipped: a numeric
// comparison against a value not present is an empty result, not a
// mapping error.
func (s *Service) checkFilters(ctx context.Context, filters []domain.PropertyFilter) error {
	for _, f := range filters {
		if f.Label == "" || f.Key == "" || f.Value == "" {
			continue
		}
		typ, ok := s.schema.PropertyType(f.Label, f.Key)
		if !ok || !strings.Contains(strings.ToLower(typ), "string") {
			continue
		}
		query := fmt.Sprintf(
			"MATCH (n:%s) WHERE toLower(n.`%s`) = toLower($value) RETURN 'yes' LIMIT 1",
			f.Label, f.Key)
		rows, err := s.executor.Query(ctx, query, map[string]any{"value": f.Value})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%w: %s.%s = %q", domain.ErrValueMapping, f.Label, f.Key, f.Value)
		}
	}
	return nil
}

func correctWith(cypher string, problems []string) domain.Update {
	return domain.Update{
		Next:         domain.ActionCorrect,
		Cypher:       &cypher,
		CypherErrors: &problems,
		Steps:        []string{stepValidate},
	}
}

func reject(msg, step string) domain.Update {
	answer := domain.MessageAnswer(msg)
	return domain.Update{
		Next:   domain.ActionReject,
		Answer: &answer,
		Steps:  []string{step},
	}
}
