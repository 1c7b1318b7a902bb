package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrClassification signals that the guardrail could not classify the question.
	ErrClassification = errors.New("guardrail classification failed")
	// ErrExtraction signals that no entities could be parsed from the question.
	ErrExtraction = errors.New("entity extraction failed")
	// ErrQuerySyntax signals a malformed Cypher statement. Never retried.
	ErrQuerySyntax = errors.New("cypher syntax error")
	// ErrQueryTransient signals a connectivity problem talking to the graph store.
	ErrQueryTransient = errors.New("transient graph store error")
	// ErrValueMapping signals a filter literal that does not occur in the database.
	ErrValueMapping = errors.New("filter value not present in database")
	// ErrAggregationShape signals a malformed row encountered during merge.
	ErrAggregationShape = errors.New("malformed row during merge")
	// ErrCorrectionExhausted signals that the correction loop hit its attempt bound.
	ErrCorrectionExhausted = errors.New("cypher correction attempts exhausted")
)

// User-facing messages returned in place of records on terminal failures.
const (
	MsgNotFood          = "This question is not about food (ordering/detail) or their related. Therefore I cannot answer this question."
	MsgNoResult         = "I couldn't find any relevant information in the database"
	MsgTemporaryFailure = "The database is temporarily unavailable, please try again."
)

// QueryExecutionError wraps a graph store failure with the backend's message.
type QueryExecutionError struct {
	Message string
	Err     error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %s", e.Message)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// NewQueryExecutionError creates a query execution error classified by kind.
func NewQueryExecutionError(message string, kind error) error {
	return &QueryExecutionError{Message: message, Err: kind}
}
