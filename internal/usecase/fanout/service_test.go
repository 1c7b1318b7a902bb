package fanout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

type mockGate struct {
	scores map[string][]domain.Scored
	err    error
}

func (m *mockGate) Scores(_ context.Context, text string, _ float64) ([]domain.Scored, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.scores[text], nil
}

type mockExecutor struct {
	mu      sync.Mutex
	queries []string
	params  []map[string]any
	rows    map[string][]map[string]any
	errOn   string
}

func (m *mockExecutor) Query(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	m.mu.Lock()
	m.queries = append(m.queries, cypher)
	m.params = append(m.params, params)
	m.mu.Unlock()

	for marker, rows := range m.rows {
		if strings.Contains(cypher, marker) || hasParamValue(params, marker) {
			return rows, nil
		}
	}
	if m.errOn != "" && hasParamValue(params, m.errOn) {
		return nil, errors.New("boom")
	}
	return nil, nil
}

func hasParamValue(params map[string]any, want string) bool {
	for _, v := range params {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func restaurantRows(ids ...string) []map[string]any {
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]any{"restaurant_id": id, "restaurant": "R-" + id})
	}
	return rows
}

func TestExecute_OneTablePerEntity(t *testing.T) {
	gate := &mockGate{scores: map[string][]domain.Scored{
		"pizza": {{ID: "f1", Score: 0.99}},
	}}
	exec := &mockExecutor{rows: map[string][]map[string]any{
		"UNWIND":    restaurantRows("A"),
		"jayanagar": restaurantRows("B"),
	}}
	svc := New(gate, exec, zap.NewNop(), 10)

	entities := []domain.Entity{
		{FoodName: "pizza", Quantity: 1},
		{Address: "jayanagar"},
	}

	tables := svc.Execute(context.Background(), entities, 0.97)

	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	if tables[0].Index != 1 || tables[1].Index != 2 {
		t.Errorf("indexes = %d, %d, want 1, 2", tables[0].Index, tables[1].Index)
	}
	if tables[0].Rows[0].RestaurantID != "A" || tables[1].Rows[0].RestaurantID != "B" {
		t.Errorf("rows routed to wrong tables")
	}
}

func TestExecute_AttachesCandidateScores(t *testing.T) {
	gate := &mockGate{scores: map[string][]domain.Scored{
		"dosa": {{ID: "f9", Score: 0.98}},
	}}
	exec := &mockExecutor{rows: map[string][]map[string]any{"UNWIND": restaurantRows("A")}}
	svc := New(gate, exec, zap.NewNop(), 10)

	svc.Execute(context.Background(), []domain.Entity{{FoodName: "dosa", Quantity: 1}}, 0.97)

	if len(exec.params) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.params))
	}
	scored, ok := exec.params[0][domain.ParamFoodScores].([]any)
	if !ok || len(scored) != 1 {
		t.Fatalf("food_scores param = %v, want one candidate", exec.params[0][domain.ParamFoodScores])
	}
	pair, ok := scored[0].(map[string]any)
	if !ok || pair["id"] != "f9" || pair["score"] != 0.98 {
		t.Errorf("candidate = %v, want id f9 score 0.98", scored[0])
	}
}

func TestExecute_NoCandidatesFallsBackToFilters(t *testing.T) {
	gate := &mockGate{}
	exec := &mockExecutor{rows: map[string][]map[string]any{
		"DELIVERS": restaurantRows("A"),
	}}
	svc := New(gate, exec, zap.NewNop(), 10)

	entity := domain.Entity{FoodName: "unknown dish", Quantity: 1, FoodPrice: 200}
	tables := svc.Execute(context.Background(), []domain.Entity{entity}, 0.97)

	if len(exec.queries) != 1 {
		t.Fatalf("executor calls = %d, a failed fuzzy match must still query by filters", len(exec.queries))
	}
	if strings.Contains(exec.queries[0], "UNWIND") {
		t.Errorf("query = %q, must not take the candidate-score path", exec.queries[0])
	}
	if _, ok := exec.params[0][domain.ParamFoodScores]; ok {
		t.Error("food_scores must not be attached when no candidate passes")
	}
	if len(tables) != 1 || tables[0].Rows[0].RestaurantID != "A" {
		t.Errorf("tables = %v, want the filter-matched rows", tables)
	}
}

func TestExecute_FailingEntityDoesNotCancelSiblings(t *testing.T) {
	gate := &mockGate{scores: map[string][]domain.Scored{}}
	exec := &mockExecutor{
		rows:  map[string][]map[string]any{"jayanagar": restaurantRows("B")},
		errOn: "indiranagar",
	}
	svc := New(gate, exec, zap.NewNop(), 10)

	entities := []domain.Entity{
		{Address: "indiranagar"},
		{Address: "jayanagar"},
	}

	tables := svc.Execute(context.Background(), entities, 0.97)

	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}
	if tables[0].Index != 2 {
		t.Errorf("surviving table index = %d, want 2 (true position preserved)", tables[0].Index)
	}
}

func TestExecute_SkipsRecordsWithoutRestaurantID(t *testing.T) {
	gate := &mockGate{}
	exec := &mockExecutor{rows: map[string][]map[string]any{
		"jayanagar": {
			{"restaurant": "orphan"},
			{"restaurant_id": "A", "restaurant": "R-A"},
		},
	}}
	svc := New(gate, exec, zap.NewNop(), 10)

	tables := svc.Execute(context.Background(), []domain.Entity{{Address: "jayanagar"}}, 0.97)

	if len(tables) != 1 || len(tables[0].Rows) != 1 {
		t.Fatalf("want one table with one row, got %v", tables)
	}
	if tables[0].Rows[0].RestaurantID != "A" {
		t.Errorf("surviving row id = %q, want A", tables[0].Rows[0].RestaurantID)
	}
}
