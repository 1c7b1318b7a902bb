package domain

// PropertyFilter is one literal comparison a generated statement makes
// against a node property. Reported by the reviewer so the literal can
// be checked for existence in the database.
type PropertyFilter struct {
	Label string
	Key   string
	Value string
}

// CypherReview is the reviewer's verdict on a generated statement:
// semantic problems to feed back into correction, plus the literal
// property filters the statement contains.
type CypherReview struct {
	Errors  []string
	Filters []PropertyFilter
}
