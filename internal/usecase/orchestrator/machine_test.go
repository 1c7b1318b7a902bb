package orchestrator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

type mockGuardrail struct {
	isFood bool
	err    error
}

func (m *mockGuardrail) Classify(_ context.Context, _ string) (bool, error) {
	return m.isFood, m.err
}

type mockExtractor struct {
	entities []domain.Entity
	err      error
}

func (m *mockExtractor) Extract(_ context.Context, _ string) ([]domain.Entity, error) {
	return m.entities, m.err
}

type mockFanout struct {
	tables []domain.EntityTable
	called bool
}

func (m *mockFanout) Execute(_ context.Context, _ []domain.Entity, _ float64) []domain.EntityTable {
	m.called = true
	return m.tables
}

type mockAggregator struct {
	records []domain.DealRecord
}

func (m *mockAggregator) Rank(_ []domain.EntityTable) []domain.DealRecord {
	return m.records
}

// scriptedGeneral replays a fixed sequence of stage outcomes.
type scriptedGeneral struct {
	generate domain.Update
	validate []domain.Update
	correct  domain.Update
	execute  domain.Update

	validateCalls int
	correctCalls  int
}

func (s *scriptedGeneral) Generate(_ context.Context, _ domain.State) domain.Update {
	return s.generate
}

func (s *scriptedGeneral) Validate(_ context.Context, _ domain.State) domain.Update {
	u := s.validate[s.validateCalls%len(s.validate)]
	s.validateCalls++
	return u
}

func (s *scriptedGeneral) Correct(_ context.Context, _ domain.State) domain.Update {
	s.correctCalls++
	return s.correct
}

func (s *scriptedGeneral) Execute(_ context.Context, _ domain.State) domain.Update {
	return s.execute
}

func strPtr(s string) *string { return &s }

func answerPtr(a domain.Answer) *domain.Answer { return &a }

func newService(g Guardrail, e Extractor, f Fanout, a Aggregator, gq GeneralQuery) *Service {
	return New(g, e, f, a, gq, zap.NewNop())
}

func TestAsk_NonFoodQuestionRejected(t *testing.T) {
	fan := &mockFanout{}
	svc := newService(&mockGuardrail{isFood: false}, &mockExtractor{}, fan, &mockAggregator{}, &scriptedGeneral{})

	resp := svc.Ask(context.Background(), "what is the capital of France", 0)

	if resp.Answer.Message() != domain.MsgNotFood {
		t.Errorf("answer = %q, want the not-food message", resp.Answer.Message())
	}
	if fan.called {
		t.Error("rejected question must never reach the data path")
	}
	if len(resp.Steps) != 1 || resp.Steps[0] != "guardrail" {
		t.Errorf("steps = %v, want [guardrail]", resp.Steps)
	}
}

func TestAsk_GuardrailFailureRejected(t *testing.T) {
	svc := newService(&mockGuardrail{err: errors.New("model down")}, &mockExtractor{}, &mockFanout{}, &mockAggregator{}, &scriptedGeneral{})

	resp := svc.Ask(context.Background(), "any question", 0)

	if resp.Answer.Message() != domain.MsgNotFood {
		t.Errorf("answer = %q, want the not-food message", resp.Answer.Message())
	}
}

func TestAsk_ParameterPathHappy(t *testing.T) {
	records := []domain.DealRecord{{Deal: []domain.SubRecord{{domain.FieldRestaurant: "Empire"}}}}
	svc := newService(
		&mockGuardrail{isFood: true},
		&mockExtractor{entities: []domain.Entity{{FoodName: "biryani"}}},
		&mockFanout{tables: []domain.EntityTable{{Index: 1}}},
		&mockAggregator{records: records},
		&scriptedGeneral{},
	)

	resp := svc.Ask(context.Background(), "order biryani", 0)

	if resp.Answer.Kind() != domain.AnswerDeals {
		t.Fatalf("answer kind = %v, want deals", resp.Answer.Kind())
	}
	want := []string{"guardrail", "extract_entities", "generate_parameter_based_cypher_query",
		"execute_queries", "generate_database_records"}
	if len(resp.Steps) != len(want) {
		t.Fatalf("steps = %v, want %v", resp.Steps, want)
	}
	for i := range want {
		if resp.Steps[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, resp.Steps[i], want[i])
		}
	}
}

func TestAsk_ExtractionFailureFallsThroughToGeneral(t *testing.T) {
	general := &scriptedGeneral{
		generate: domain.Update{Next: domain.ActionValidate, Cypher: strPtr("MATCH (r) RETURN r")},
		validate: []domain.Update{{Next: domain.ActionExecute}},
		execute: domain.Update{
			Next:   domain.ActionReturn,
			Answer: answerPtr(domain.RowsAnswer([]map[string]any{{"name": "Empire"}})),
		},
	}
	svc := newService(
		&mockGuardrail{isFood: true},
		&mockExtractor{err: errors.New("no entities")},
		&mockFanout{},
		&mockAggregator{},
		general,
	)

	resp := svc.Ask(context.Background(), "strange food question", 0)

	if resp.Answer.Kind() != domain.AnswerRows {
		t.Fatalf("answer kind = %v, want rows", resp.Answer.Kind())
	}
	found := false
	for _, s := range resp.Steps {
		if s == "go_for_general_query_agent" {
			found = true
		}
	}
	if !found {
		t.Errorf("steps = %v, missing the fall-through marker", resp.Steps)
	}
}

func TestAsk_EmptyFanoutFallsThroughToGeneral(t *testing.T) {
	general := &scriptedGeneral{
		generate: domain.Update{Next: domain.ActionValidate, Cypher: strPtr("MATCH (r) RETURN r")},
		validate: []domain.Update{{Next: domain.ActionExecute}},
		execute: domain.Update{
			Next:   domain.ActionReturn,
			Answer: answerPtr(domain.MessageAnswer(domain.MsgNoResult)),
		},
	}
	svc := newService(
		&mockGuardrail{isFood: true},
		&mockExtractor{entities: []domain.Entity{{FoodName: "martian curry"}}},
		&mockFanout{tables: nil},
		&mockAggregator{},
		general,
	)

	resp := svc.Ask(context.Background(), "order martian curry", 0)

	if resp.Answer.Message() != domain.MsgNoResult {
		t.Errorf("answer = %q, want the no-result message", resp.Answer.Message())
	}
}

func TestAsk_CorrectionLoopBounded(t *testing.T) {
	// Validation never passes; the loop must give up, not spin.
	general := &scriptedGeneral{
		generate: domain.Update{Next: domain.ActionValidate, Cypher: strPtr("bad")},
		validate: []domain.Update{{
			Next:         domain.ActionCorrect,
			CypherErrors: &[]string{"still broken"},
		}},
		correct: domain.Update{Next: domain.ActionValidate, Cypher: strPtr("still bad")},
	}
	svc := newService(
		&mockGuardrail{isFood: true},
		&mockExtractor{err: errors.New("nothing extractable")},
		&mockFanout{},
		&mockAggregator{},
		general,
	)

	resp := svc.Ask(context.Background(), "hopeless question", 0)

	if general.correctCalls != MaxCorrections {
		t.Errorf("corrections = %d, want %d", general.correctCalls, MaxCorrections)
	}
	if resp.Answer.Message() != domain.MsgNoResult {
		t.Errorf("answer = %q, want the no-result message", resp.Answer.Message())
	}
}

func TestAsk_EmptyRecordsBecomeMessage(t *testing.T) {
	svc := newService(
		&mockGuardrail{isFood: true},
		&mockExtractor{entities: []domain.Entity{{FoodName: "dosa"}}},
		&mockFanout{tables: []domain.EntityTable{{Index: 1}}},
		&mockAggregator{records: nil},
		&scriptedGeneral{},
	)

	resp := svc.Ask(context.Background(), "order dosa", 0)

	if resp.Answer.Message() != domain.MsgNoResult {
		t.Errorf("answer = %q, want the no-result message", resp.Answer.Message())
	}
}
