package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crave-labs/menugraph/internal/domain"
)

// mergedRow is one outer-joined row: per-entity-index slots keyed by the
// shared restaurant id. A missing slot means that entity did not match
// this restaurant for this row.
type mergedRow struct {
	RestaurantID string
	Slots        map[int]domain.Row
}

func (m mergedRow) dealCount() int { return len(m.Slots) }

// slotIndexes returns the present entity indexes in ascending order.
func (m mergedRow) slotIndexes() []int {
	idxs := make([]int, 0, len(m.Slots))
	for i := range m.Slots {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// scoreMeans computes the mean per-entity similarity score and the mean
// per-entity relevance score, each over only the slots that carry one.
// A row with no scoring slots yields 0 so it sorts after scored rows.
func (m mergedRow) scoreMeans() (simMean, relMean float64) {
	var simSum, relSum float64
	var simN, relN int
	for _, row := range m.Slots {
		if s, ok := row.Float(domain.FieldSimilarityScore); ok {
			simSum += s
			simN++
		}
		if s, ok := row.Float(domain.FieldRestaurantScore); ok {
			relSum += s
			relN++
		}
	}
	if simN > 0 {
		simMean = simSum / float64(simN)
	}
	if relN > 0 {
		relMean = relSum / float64(relN)
	}
	return simMean, relMean
}

// outerJoin merges the per-entity tables on restaurant id. A restaurant
// matched by only a subset of entities is preserved with the other
// slots absent. A table holding several rows for one restaurant (one
// per matching dish) joins combinatorially, one merged row per
// combination, mirroring a relational full outer join on the key.
func outerJoin(tables []domain.EntityTable) []mergedRow {
	byID := make([]map[string][]domain.Row, len(tables))
	var order []string
	seen := make(map[string]bool)

	for t, table := range tables {
		byID[t] = make(map[string][]domain.Row)
		for _, row := range table.Rows {
			byID[t][row.RestaurantID] = append(byID[t][row.RestaurantID], row)
			if !seen[row.RestaurantID] {
				seen[row.RestaurantID] = true
				order = append(order, row.RestaurantID)
			}
		}
	}

	var merged []mergedRow
	for _, id := range order {
		combos := []map[int]domain.Row{{}}
		for t, table := range tables {
			rows := byID[t][id]
			if len(rows) == 0 {
				continue
			}
			next := make([]map[int]domain.Row, 0, len(combos)*len(rows))
			for _, c := range combos {
				for _, row := range rows {
					nc := make(map[int]domain.Row, len(c)+1)
					for k, v := range c {
						nc[k] = v
					}
					nc[table.Index] = row
					next = append(next, nc)
				}
			}
			combos = next
		}
		for _, c := range combos {
			merged = append(merged, mergedRow{RestaurantID: id, Slots: c})
		}
	}
	return merged
}

// dropDuplicates removes exact duplicate merged rows, keeping the first
// occurrence.
func dropDuplicates(rows []mergedRow) []mergedRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := r.fingerprint()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// fingerprint serializes a merged row deterministically for duplicate
// detection.
func (m mergedRow) fingerprint() string {
	var b strings.Builder
	b.WriteString(m.RestaurantID)
	for _, idx := range m.slotIndexes() {
		row := m.Slots[idx]
		fmt.Fprintf(&b, "|%d:", idx)
		fields := make([]string, 0, len(row.Fields))
		for f := range row.Fields {
			fields = append(fields, string(f))
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, "%s=%v;", f, row.Fields[domain.Field(f)])
		}
	}
	return b.String()
}
