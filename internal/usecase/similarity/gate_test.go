package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/crave-labs/menugraph/internal/domain"
)

type mockSearcher struct {
	results []domain.Scored
	err     error
	called  bool
}

func (m *mockSearcher) Search(_ context.Context, _ string, _ int) ([]domain.Scored, error) {
	m.called = true
	return m.results, m.err
}

func TestScores_CutsBelowThreshold(t *testing.T) {
	searcher := &mockSearcher{results: []domain.Scored{
		{ID: "a", Score: 0.99},
		{ID: "b", Score: 0.98},
		{ID: "c", Score: 0.95},
		{ID: "d", Score: 0.80},
	}}
	gate := NewGate(searcher)

	got, err := gate.Scores(context.Background(), "paneer tikka", 0.97)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}

	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("passing = %v, want [a b]", got)
	}
}

func TestScores_SortsUnorderedCandidates(t *testing.T) {
	searcher := &mockSearcher{results: []domain.Scored{
		{ID: "low", Score: 0.90},
		{ID: "high", Score: 0.99},
		{ID: "mid", Score: 0.95},
	}}
	gate := NewGate(searcher)

	got, err := gate.Scores(context.Background(), "dosa", 0.94)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}

	if len(got) != 2 || got[0].ID != "high" || got[1].ID != "mid" {
		t.Errorf("passing = %v, want [high mid]", got)
	}
}

func TestScores_EmptyTextSkipsSearch(t *testing.T) {
	searcher := &mockSearcher{}
	gate := NewGate(searcher)

	got, err := gate.Scores(context.Background(), "", 0.9)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if got != nil {
		t.Errorf("passing = %v, want nil", got)
	}
	if searcher.called {
		t.Error("empty text must not hit the searcher")
	}
}

func TestScores_NonePass(t *testing.T) {
	searcher := &mockSearcher{results: []domain.Scored{{ID: "a", Score: 0.5}}}
	gate := NewGate(searcher)

	got, err := gate.Scores(context.Background(), "sushi", 0.97)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if got != nil {
		t.Errorf("passing = %v, want nil", got)
	}
}

func TestScores_SearchError(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("backend down")}
	gate := NewGate(searcher)

	if _, err := gate.Scores(context.Background(), "idli", 0.9); err == nil {
		t.Error("want error from failing searcher")
	}
}
