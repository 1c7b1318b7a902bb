// Package chi exposes the question-answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/logger"
	"github.com/crave-labs/menugraph/internal/usecase/orchestrator"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnavailable      = "unavailable"
)

const maxQuestionBytes = 8 << 10

// Asker answers one question end to end.
type Asker interface {
	Ask(ctx context.Context, question string, threshold float64) orchestrator.Response
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	asker  Asker
	checks []Check
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(asker Asker, logger *zap.Logger, checks ...Check) *Server {
	return &Server{asker: asker, checks: checks, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/ask", s.handleAsk)
	r.Get("/healthz", s.handleHealthz)
}

// AskRequest is the question payload.
type AskRequest struct {
	Question string `json:"question"`
	// PassingThreshold tightens or loosens fuzzy dish matching.
	// Zero means the server default.
	PassingThreshold float64 `json:"passing_threshold,omitempty"`
}

// AskResponse carries the answer, the executed statement when the
// general path produced one, and the stage trace.
type AskResponse struct {
	DatabaseRecords domain.Answer `json:"database_records"`
	CypherStatement string        `json:"cypher_statement,omitempty"`
	Steps           []string      `json:"steps"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}
	if req.PassingThreshold < 0 || req.PassingThreshold > 1 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "passing_threshold must be between 0 and 1")
		return
	}

	resp := s.asker.Ask(r.Context(), req.Question, req.PassingThreshold)

	logger.FromContext(r.Context()).Info("question answered",
		zap.Int("steps", len(resp.Steps)),
		zap.Bool("cypher_generated", resp.Cypher != ""))

	writeJSON(w, http.StatusOK, AskResponse{
		DatabaseRecords: resp.Answer,
		CypherStatement: resp.Cypher,
		Steps:           resp.Steps,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Probe(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
			result[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		result[c.Name] = "ok"
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
