package generalquery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

type mockLLM struct {
	generated  string
	genErr     error
	review     domain.CypherReview
	reviewErr  error
	corrected  string
	correctErr error

	correctCalls int
	lastProblems []string
}

func (m *mockLLM) GenerateCypher(_ context.Context, _ string, _ *domain.Schema) (string, error) {
	return m.generated, m.genErr
}

func (m *mockLLM) ReviewCypher(_ context.Context, _, _ string, _ *domain.Schema) (domain.CypherReview, error) {
	return m.review, m.reviewErr
}

func (m *mockLLM) CorrectCypher(_ context.Context, _, _ string, problems []string, _ *domain.Schema) (string, error) {
	m.correctCalls++
	m.lastProblems = problems
	return m.corrected, m.correctErr
}

type mockExecutor struct {
	rows       map[string][]map[string]any
	syntaxErrs map[string]string
	err        error
}

func (m *mockExecutor) Query(_ context.Context, cypher string, _ map[string]any) ([]map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	if msg, ok := m.syntaxErrs[cypher]; ok {
		return nil, domain.NewQueryExecutionError(msg, domain.ErrQuerySyntax)
	}
	return m.rows[cypher], nil
}

func testSchema() *domain.Schema {
	return &domain.Schema{
		Labels: []string{"Restaurant", "Food"},
		Relationships: []domain.RelTriple{
			{Start: "Restaurant", Type: "DELIVERS", End: "Food"},
		},
		Properties: map[string][]domain.Property{
			"Restaurant": {{Name: "name", Type: "String"}, {Name: "delivery_rating", Type: "String"}},
			"Food":       {{Name: "name", Type: "String"}, {Name: "price", Type: "Double"}},
		},
	}
}

func testState(cypher string) domain.State {
	return domain.State{RunID: "test", Question: "q", Cypher: cypher}
}

func TestValidate_CleanStatementExecutes(t *testing.T) {
	cypher := "MATCH (r:Restaurant)-[:DELIVERS]->(f:Food) RETURN r.name"
	exec := &mockExecutor{rows: map[string][]map[string]any{
		"MATCH (n:Restaurant) WHERE toLower(n.`name`) = toLower($value) RETURN 'yes' LIMIT 1": {{"'yes'": "yes"}},
	}}
	llm := &mockLLM{review: domain.CypherReview{
		Filters: []domain.PropertyFilter{{Label: "Restaurant", Key: "name", Value: "Empire"}},
	}}
	svc := New(llm, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionExecute {
		t.Errorf("next = %v, want execute", update.Next)
	}
}

func TestValidate_SyntaxErrorRoutesToCorrection(t *testing.T) {
	cypher := "MATCH (r:Restaurant RETURN r"
	exec := &mockExecutor{syntaxErrs: map[string]string{
		"EXPLAIN " + cypher: "Invalid input 'RETURN'",
	}}
	svc := New(&mockLLM{}, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionCorrect {
		t.Fatalf("next = %v, want correct", update.Next)
	}
	if update.CypherErrors == nil || len(*update.CypherErrors) == 0 {
		t.Error("syntax problem must be recorded for the corrector")
	}
}

func TestValidate_ReviewErrorsRouteToCorrection(t *testing.T) {
	cypher := "MATCH (r:Restaurant)-[:DELIVERS]->(f:Food) RETURN r.cuisine"
	exec := &mockExecutor{}
	llm := &mockLLM{review: domain.CypherReview{
		Errors: []string{"Restaurant has no property cuisine"},
	}}
	svc := New(llm, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionCorrect {
		t.Fatalf("next = %v, want correct", update.Next)
	}
	if update.CypherErrors == nil || (*update.CypherErrors)[0] != "Restaurant has no property cuisine" {
		t.Errorf("problems = %v", update.CypherErrors)
	}
}

func TestValidate_CollectsAllProblemSources(t *testing.T) {
	cypher := "MATCH (r:Restaurant RETURN r.cuisine"
	exec := &mockExecutor{syntaxErrs: map[string]string{
		"EXPLAIN " + cypher: "Invalid input 'RETURN'",
	}}
	llm := &mockLLM{review: domain.CypherReview{
		Errors: []string{"Restaurant has no property cuisine"},
	}}
	svc := New(llm, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionCorrect {
		t.Fatalf("next = %v, want correct", update.Next)
	}
	if update.CypherErrors == nil || len(*update.CypherErrors) != 2 {
		t.Fatalf("problems = %v, the corrector must see both the syntax and the review problem", update.CypherErrors)
	}
}

func TestCheckFilters_MissingValueIsMappingError(t *testing.T) {
	svc := New(&mockLLM{}, &mockExecutor{}, testSchema(), zap.NewNop())

	err := svc.checkFilters(context.Background(), []domain.PropertyFilter{
		{Label: "Restaurant", Key: "name", Value: "Nowhere"},
	})

	if !errors.Is(err, domain.ErrValueMapping) {
		t.Errorf("err = %v, want a value-mapping classification", err)
	}
}

func TestValidate_MissingFilterValueRejects(t *testing.T) {
	cypher := "MATCH (r:Restaurant) WHERE r.name = 'Nowhere' RETURN r"
	exec := &mockExecutor{} // point query returns no rows
	llm := &mockLLM{review: domain.CypherReview{
		Filters: []domain.PropertyFilter{{Label: "Restaurant", Key: "name", Value: "Nowhere"}},
	}}
	svc := New(llm, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionReject {
		t.Fatalf("next = %v, want reject", update.Next)
	}
	if update.Answer == nil || update.Answer.Message() != domain.MsgNoResult {
		t.Errorf("answer = %v, want the no-result message", update.Answer)
	}
}

func TestValidate_NumericFilterNotChecked(t *testing.T) {
	cypher := "MATCH (f:Food) WHERE f.price = 120 RETURN f"
	exec := &mockExecutor{}
	llm := &mockLLM{review: domain.CypherReview{
		Filters: []domain.PropertyFilter{{Label: "Food", Key: "price", Value: "120"}},
	}}
	svc := New(llm, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionExecute {
		t.Errorf("next = %v, want execute (numeric literals skip existence checks)", update.Next)
	}
}

func TestValidate_FlipsReversedDirection(t *testing.T) {
	cypher := "MATCH (r:Restaurant)<-[:DELIVERS]-(f:Food) RETURN r.name"
	exec := &mockExecutor{}
	svc := New(&mockLLM{}, exec, testSchema(), zap.NewNop())

	update := svc.Validate(context.Background(), testState(cypher))

	if update.Next != domain.ActionExecute {
		t.Fatalf("next = %v, want execute", update.Next)
	}
	if update.Cypher == nil || !strings.Contains(*update.Cypher, "(r:Restaurant)-[:DELIVERS]->(f:Food)") {
		t.Errorf("direction not flipped: %v", update.Cypher)
	}
}

func TestGenerate_EmptyStatementRejects(t *testing.T) {
	svc := New(&mockLLM{generated: "  "}, &mockExecutor{}, testSchema(), zap.NewNop())

	update := svc.Generate(context.Background(), testState(""))

	if update.Next != domain.ActionReject {
		t.Errorf("next = %v, want reject", update.Next)
	}
}

func TestCorrect_PassesRecordedProblems(t *testing.T) {
	llm := &mockLLM{corrected: "MATCH (r:Restaurant) RETURN r.name"}
	svc := New(llm, &mockExecutor{}, testSchema(), zap.NewNop())

	state := testState("bad statement")
	state.CypherErrors = []string{"problem one", "problem two"}

	update := svc.Correct(context.Background(), state)

	if update.Next != domain.ActionValidate {
		t.Errorf("next = %v, want validate", update.Next)
	}
	if len(llm.lastProblems) != 2 {
		t.Errorf("problems passed = %v, want both", llm.lastProblems)
	}
	if update.CypherErrors == nil || len(*update.CypherErrors) != 0 {
		t.Error("recorded problems must reset after a correction")
	}
}

func TestExecute_EmptyResultReturnsMessage(t *testing.T) {
	svc := New(&mockLLM{}, &mockExecutor{}, testSchema(), zap.NewNop())

	update := svc.Execute(context.Background(), testState("MATCH (r:Restaurant) RETURN r"))

	if update.Next != domain.ActionReturn {
		t.Fatalf("next = %v, want return", update.Next)
	}
	if update.Answer.Message() != domain.MsgNoResult {
		t.Errorf("answer = %q, want the no-result message", update.Answer.Message())
	}
}

func TestExecute_RowsWrapped(t *testing.T) {
	cypher := "MATCH (r:Restaurant) RETURN r.name AS name"
	exec := &mockExecutor{rows: map[string][]map[string]any{
		cypher: {{"name": "Empire"}},
	}}
	svc := New(&mockLLM{}, exec, testSchema(), zap.NewNop())

	update := svc.Execute(context.Background(), testState(cypher))

	if update.Next != domain.ActionReturn {
		t.Fatalf("next = %v, want return", update.Next)
	}
	rows := update.Answer.Rows()
	if len(rows) != 1 || rows[0]["name"] != "Empire" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExecute_TransientFailureRejects(t *testing.T) {
	exec := &mockExecutor{err: errors.New("connection refused")}
	svc := New(&mockLLM{}, exec, testSchema(), zap.NewNop())

	update := svc.Execute(context.Background(), testState("MATCH (r) RETURN r"))

	if update.Next != domain.ActionReject {
		t.Fatalf("next = %v, want reject", update.Next)
	}
	if update.Answer.Message() != domain.MsgTemporaryFailure {
		t.Errorf("answer = %q, want the temporary-failure message", update.Answer.Message())
	}
}
