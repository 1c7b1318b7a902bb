package domain

import "encoding/json"

// SubRecord is one matched dish or restaurant inside a deal, holding
// only the fields the matching entity's projection produced.
type SubRecord map[Field]any

// DealRecord is the merged output record for one restaurant: one
// sub-record per entity that matched it, plus derived totals.
type DealRecord struct {
	Deal               []SubRecord `json:"deal"`
	TotalCost          *float64    `json:"total_cost,omitempty"`
	AvgSimilarityScore *float64    `json:"avg_similarity_score,omitempty"`
}

// AnswerKind discriminates the three answer shapes the presentation
// layer branches on.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerDeals
	AnswerRows
	AnswerMessage
)

// Answer is the tagged union of pipeline outcomes: ranked deal records
// (parameter path), raw rows (general path), or a plain message
// (rejections and empty results).
type Answer struct {
	kind    AnswerKind
	deals   []DealRecord
	rows    []map[string]any
	message string
}

// DealsAnswer wraps ranked deal records.
func DealsAnswer(deals []DealRecord) Answer {
	return Answer{kind: AnswerDeals, deals: deals}
}

// RowsAnswer wraps raw general-path rows.
func RowsAnswer(rows []map[string]any) Answer {
	return Answer{kind: AnswerRows, rows: rows}
}

// MessageAnswer wraps a user-facing message.
func MessageAnswer(msg string) Answer {
	return Answer{kind: AnswerMessage, message: msg}
}

// Kind returns the answer shape.
func (a Answer) Kind() AnswerKind { return a.kind }

// Deals returns the ranked deal records (AnswerDeals only).
func (a Answer) Deals() []DealRecord { return a.deals }

// Rows returns the raw rows (AnswerRows only).
func (a Answer) Rows() []map[string]any { return a.rows }

// Message returns the user-facing message (AnswerMessage only).
func (a Answer) Message() string { return a.message }

// IsZero reports whether no answer has been produced.
func (a Answer) IsZero() bool { return a.kind == AnswerNone }

// MarshalJSON emits the shape the presentation layer inspects: an array
// of deal objects, an array of flat records, or a bare string.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerDeals:
		return json.Marshal(a.deals)
	case AnswerRows:
		return json.Marshal(a.rows)
	case AnswerMessage:
		return json.Marshal(a.message)
	default:
		return []byte("null"), nil
	}
}
