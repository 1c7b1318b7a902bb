package aggregate

import (
	"fmt"
	"math"

	"github.com/crave-labs/menugraph/internal/domain"
)

// shapeRow converts one merged row into a deal record: one sub-record
// per matched entity, total cost over sub-records carrying both a price
// and a quantity, and the mean similarity (or relevance) score over
// sub-records reporting one.
//
// A price or quantity column that is present but not numeric is a shape
// error, reported wrapping ErrAggregationShape. Callers skip the row
// and continue the batch.
func shapeRow(m mergedRow) (domain.DealRecord, error) {
	var rec domain.DealRecord
	var totalCost float64
	var scores []float64

	for _, idx := range m.slotIndexes() {
		row := m.Slots[idx]

		sub := make(domain.SubRecord, len(row.Fields))
		for _, f := range domain.RecordFields {
			if v, ok := row.Fields[f]; ok {
				sub[f] = v
			}
		}

		if row.Has(domain.FieldPrice) && row.Has(domain.FieldQuantity) {
			price, pok := row.Float(domain.FieldPrice)
			qty, qok := row.Float(domain.FieldQuantity)
			if !pok || !qok {
				return domain.DealRecord{}, fmt.Errorf("%w: restaurant %s carries a non-numeric price or quantity",
					domain.ErrAggregationShape, m.RestaurantID)
			}
			if qty != 0 {
				totalCost += price * qty
			}
		}

		if s, ok := row.Float(domain.FieldSimilarityScore); ok {
			scores = append(scores, s)
		} else if s, ok := row.Float(domain.FieldRestaurantScore); ok {
			scores = append(scores, s)
		}

		rec.Deal = append(rec.Deal, sub)
	}

	if totalCost != 0 {
		rec.TotalCost = &totalCost
	}
	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		mean := math.Round(sum/float64(len(scores))*1000) / 1000
		rec.AvgSimilarityScore = &mean
	}
	return rec, nil
}
