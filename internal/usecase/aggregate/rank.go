package aggregate

import (
	"math"
	"sort"

	"github.com/crave-labs/menugraph/internal/domain"
)

// sortMerged orders merged rows by the default ranking: rows matching
// more entities first, then mean similarity score, then mean relevance
// score, all descending. The sort is stable over a deterministic input
// order, so repeated runs yield identical output.
func sortMerged(rows []mergedRow) {
	type keyed struct {
		deal int
		sim  float64
		rel  float64
	}
	keys := make([]keyed, len(rows))
	for i, r := range rows {
		sim, rel := r.scoreMeans()
		keys[i] = keyed{deal: r.dealCount(), sim: sim, rel: rel}
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.deal != kb.deal {
			return ka.deal > kb.deal
		}
		if ka.sim != kb.sim {
			return ka.sim > kb.sim
		}
		return ka.rel > kb.rel
	})
	out := make([]mergedRow, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	copy(rows, out)
}

// directiveValue reads the attribute an ordering directive targets from
// a shaped record. Price reads the record's total cost; the rating
// directives read the first sub-record, which belongs to the
// lowest-indexed matching entity.
func directiveValue(rec domain.DealRecord, f domain.OrderField) (float64, bool) {
	switch f {
	case domain.OrderByFoodPrice:
		if rec.TotalCost != nil {
			return *rec.TotalCost, true
		}
		return 0, false
	case domain.OrderByFoodRating:
		return subRecordFloat(rec, domain.FieldFoodRating)
	case domain.OrderByRestaurantRating:
		return subRecordFloat(rec, domain.FieldDeliveryRating)
	default:
		return 0, false
	}
}

func subRecordFloat(rec domain.DealRecord, f domain.Field) (float64, bool) {
	if len(rec.Deal) == 0 {
		return 0, false
	}
	return asFloat(rec.Deal[0][f])
}

func asFloat(v any) (float64, bool) {
	row := domain.Row{Fields: map[domain.Field]any{"v": v}}
	return row.Float("v")
}

// sortRecords applies the final ordering to shaped records: deal count
// descending, then mean similarity descending, then, when an explicit
// directive is present, the requested field in the requested direction.
// Records missing the requested field sort last regardless of direction,
// via a direction-dependent sentinel.
func sortRecords(recs []domain.DealRecord, directive *domain.OrderDirective) {
	avgSim := func(r domain.DealRecord) float64 {
		if r.AvgSimilarityScore != nil {
			return *r.AvgSimilarityScore
		}
		return 0
	}

	sort.SliceStable(recs, func(a, b int) bool {
		ra, rb := recs[a], recs[b]
		if len(ra.Deal) != len(rb.Deal) {
			return len(ra.Deal) > len(rb.Deal)
		}
		if sa, sb := avgSim(ra), avgSim(rb); sa != sb {
			return sa > sb
		}
		if directive == nil {
			return false
		}

		sentinel := math.Inf(1) // ASC: missing sorts last
		if directive.Dir == domain.Descending {
			sentinel = math.Inf(-1)
		}
		va, oka := directiveValue(ra, directive.Field)
		vb, okb := directiveValue(rb, directive.Field)
		if !oka {
			va = sentinel
		}
		if !okb {
			vb = sentinel
		}
		if directive.Dir == domain.Descending {
			return va > vb
		}
		return va < vb
	})
}
