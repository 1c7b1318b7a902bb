package aggregate

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
)

func row(id string, fields map[domain.Field]any) domain.Row {
	return domain.Row{RestaurantID: id, Fields: fields}
}

func table(index int, intent domain.Intent, rows ...domain.Row) domain.EntityTable {
	return domain.EntityTable{
		Index: index,
		Rows:  rows,
		Query: domain.CompiledQuery{Intent: intent},
	}
}

func TestRank_OuterMergePreservesPartialMatches(t *testing.T) {
	svc := New(zap.NewNop())

	t1 := table(1, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldFoodName: "pizza"}),
		row("B", map[domain.Field]any{domain.FieldFoodName: "pizza"}),
	)
	t2 := table(2, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldFoodName: "coke"}),
		row("C", map[domain.Field]any{domain.FieldFoodName: "coke"}),
	)

	records := svc.Rank([]domain.EntityTable{t1, t2})

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	// The restaurant matching both entities ranks first.
	if len(records[0].Deal) != 2 {
		t.Errorf("first record deal size = %d, want 2", len(records[0].Deal))
	}
	if len(records[1].Deal) != 1 || len(records[2].Deal) != 1 {
		t.Errorf("partial matches must survive with one sub-record each")
	}
}

func TestRank_TotalCostAcrossEntities(t *testing.T) {
	svc := New(zap.NewNop())

	t1 := table(1, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldPrice: 100.0, domain.FieldQuantity: 2.0}),
	)
	t2 := table(2, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldPrice: 50.0, domain.FieldQuantity: 1.0}),
	)

	records := svc.Rank([]domain.EntityTable{t1, t2})

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].TotalCost == nil || *records[0].TotalCost != 250 {
		t.Errorf("total cost = %v, want 250", records[0].TotalCost)
	}
}

func TestRank_AverageSimilarityRounded(t *testing.T) {
	svc := New(zap.NewNop())

	t1 := table(1, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldSimilarityScore: 0.9911}),
	)
	t2 := table(2, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldSimilarityScore: 0.9701}),
	)

	records := svc.Rank([]domain.EntityTable{t1, t2})

	if len(records) != 1 || records[0].AvgSimilarityScore == nil {
		t.Fatalf("want one record with a mean similarity, got %v", records)
	}
	if got := *records[0].AvgSimilarityScore; got != 0.981 {
		t.Errorf("mean similarity = %v, want 0.981", got)
	}
}

func TestRank_DirectiveOrdersByTotalCost(t *testing.T) {
	svc := New(zap.NewNop())

	intent := domain.Intent{
		Directive: &domain.OrderDirective{Field: domain.OrderByFoodPrice, Dir: domain.Ascending},
	}
	tbl := table(1, intent,
		row("A", map[domain.Field]any{domain.FieldPrice: 150.0, domain.FieldQuantity: 1.0}),
		row("B", map[domain.Field]any{domain.FieldPrice: 90.0, domain.FieldQuantity: 1.0}),
	)

	records := svc.Rank([]domain.EntityTable{tbl})

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if *records[0].TotalCost != 90 || *records[1].TotalCost != 150 {
		t.Errorf("ascending price order broken: %v, %v", *records[0].TotalCost, *records[1].TotalCost)
	}
}

func TestRank_TopNTruncatesAfterOrdering(t *testing.T) {
	svc := New(zap.NewNop())

	intent := domain.Intent{
		TopNByDirective: true,
		Limit:           2,
		Directive:       &domain.OrderDirective{Field: domain.OrderByFoodPrice, Dir: domain.Ascending},
	}
	tbl := table(1, intent,
		row("A", map[domain.Field]any{domain.FieldPrice: 300.0, domain.FieldQuantity: 1.0}),
		row("B", map[domain.Field]any{domain.FieldPrice: 100.0, domain.FieldQuantity: 1.0}),
		row("C", map[domain.Field]any{domain.FieldPrice: 200.0, domain.FieldQuantity: 1.0}),
	)

	records := svc.Rank([]domain.EntityTable{tbl})

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if *records[0].TotalCost != 100 || *records[1].TotalCost != 200 {
		t.Errorf("top-N must keep the cheapest rows: %v, %v", *records[0].TotalCost, *records[1].TotalCost)
	}
}

func TestRank_SkipsMalformedRows(t *testing.T) {
	svc := New(zap.NewNop())

	tbl := table(1, domain.Intent{},
		row("A", map[domain.Field]any{domain.FieldPrice: true, domain.FieldQuantity: 1.0}),
		row("B", map[domain.Field]any{domain.FieldPrice: 120.0, domain.FieldQuantity: 1.0}),
	)

	records := svc.Rank([]domain.EntityTable{tbl})

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (malformed row skipped)", len(records))
	}
	if *records[0].TotalCost != 120 {
		t.Errorf("surviving record total cost = %v, want 120", *records[0].TotalCost)
	}
}

func TestShapeRow_MalformedRowReportsShapeError(t *testing.T) {
	m := mergedRow{
		RestaurantID: "A",
		Slots: map[int]domain.Row{
			1: row("A", map[domain.Field]any{domain.FieldPrice: true, domain.FieldQuantity: 1.0}),
		},
	}

	_, err := shapeRow(m)
	if !errors.Is(err, domain.ErrAggregationShape) {
		t.Errorf("err = %v, want a shape classification", err)
	}
}

func TestRank_DoesNotReorderInput(t *testing.T) {
	svc := New(zap.NewNop())

	tables := []domain.EntityTable{
		table(2, domain.Intent{}, row("A", map[domain.Field]any{domain.FieldFoodName: "coke"})),
		table(1, domain.Intent{}, row("A", map[domain.Field]any{domain.FieldFoodName: "pizza"})),
	}

	svc.Rank(tables)

	if tables[0].Index != 2 || tables[1].Index != 1 {
		t.Errorf("input order changed: %d, %d", tables[0].Index, tables[1].Index)
	}
}

func TestRank_DropsExactDuplicates(t *testing.T) {
	svc := New(zap.NewNop())

	dup := map[domain.Field]any{domain.FieldFoodName: "idli", domain.FieldPrice: 40.0}
	tbl := table(1, domain.Intent{},
		row("A", dup),
		row("A", dup),
	)

	records := svc.Rank([]domain.EntityTable{tbl})

	if len(records) != 1 {
		t.Errorf("records = %d, want 1 after duplicate drop", len(records))
	}
}

func TestRank_Idempotent(t *testing.T) {
	svc := New(zap.NewNop())

	build := func() []domain.EntityTable {
		return []domain.EntityTable{
			table(1, domain.Intent{},
				row("A", map[domain.Field]any{domain.FieldFoodName: "pizza", domain.FieldSimilarityScore: 0.99}),
				row("B", map[domain.Field]any{domain.FieldFoodName: "pasta", domain.FieldSimilarityScore: 0.98}),
			),
			table(2, domain.Intent{},
				row("B", map[domain.Field]any{domain.FieldFoodName: "coke"}),
				row("A", map[domain.Field]any{domain.FieldFoodName: "coke"}),
			),
		}
	}

	first := svc.Rank(build())
	for i := 0; i < 5; i++ {
		if next := svc.Rank(build()); !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d produced a different ranking", i)
		}
	}
}

func TestRank_LastTableDirectiveWins(t *testing.T) {
	svc := New(zap.NewNop())

	first := table(1, domain.Intent{
		Directive: &domain.OrderDirective{Field: domain.OrderByFoodPrice, Dir: domain.Descending},
	},
		row("A", map[domain.Field]any{domain.FieldPrice: 100.0, domain.FieldQuantity: 1.0}),
		row("B", map[domain.Field]any{domain.FieldPrice: 200.0, domain.FieldQuantity: 1.0}),
	)
	last := table(2, domain.Intent{
		Directive: &domain.OrderDirective{Field: domain.OrderByFoodPrice, Dir: domain.Ascending},
	},
		row("A", map[domain.Field]any{domain.FieldPrice: 10.0, domain.FieldQuantity: 1.0}),
		row("B", map[domain.Field]any{domain.FieldPrice: 20.0, domain.FieldQuantity: 1.0}),
	)

	records := svc.Rank([]domain.EntityTable{first, last})

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if *records[0].TotalCost >= *records[1].TotalCost {
		t.Errorf("last entity's ascending directive must win: %v, %v",
			*records[0].TotalCost, *records[1].TotalCost)
	}
}

func TestRank_EmptyInput(t *testing.T) {
	svc := New(zap.NewNop())
	if got := svc.Rank(nil); got != nil {
		t.Errorf("Rank(nil) = %v, want nil", got)
	}
}
