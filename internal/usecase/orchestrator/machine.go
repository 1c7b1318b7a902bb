// Package orchestrator drives a question through the answering state
// machine: a guardrail, then either the structured parameter path
// (extract, fan out, aggregate) or the general path (generate, validate,
// correct, execute), with every transition routed on explicit action
// signals.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/metrics"
)

const (
	// DefaultTimeout bounds one question end to end.
	DefaultTimeout = 120 * time.Second
	// DefaultThreshold is the similarity gate cutoff when the caller
	// names none.
	DefaultThreshold = 0.98
	// MaxCorrections bounds the validate/correct loop. On the attempt
	// after the last correction the pipeline gives up rather than loop.
	MaxCorrections = 2
)

const (
	stepGuardrail      = "guardrail"
	stepExtract        = "extract_entities"
	stepCompileQueries = "generate_parameter_based_cypher_query"
	stepRunQueries     = "execute_queries"
	stepBuildRecords   = "generate_database_records"
	stepNoParameter    = "no_parameter_found"
	stepGoGeneral      = "go_for_general_query_agent"
)

// Response is the terminal pipeline output for one question.
type Response struct {
	Answer domain.Answer
	Cypher string
	Steps  []string
}

// Service is the state machine driver.
type Service struct {
	guardrail Guardrail
	extractor Extractor
	fanout    Fanout
	aggregate Aggregator
	general   GeneralQuery
	logger    *zap.Logger

	timeout          time.Duration
	defaultThreshold float64
	maxCorrections   int
}

// New creates an orchestrator with default bounds.
func New(guardrail Guardrail, extractor Extractor, fanout Fanout, aggregate Aggregator, general GeneralQuery, logger *zap.Logger) *Service {
	return &Service{
		guardrail:        guardrail,
		extractor:        extractor,
		fanout:           fanout,
		aggregate:        aggregate,
		general:          general,
		logger:           logger,
		timeout:          DefaultTimeout,
		defaultThreshold: DefaultThreshold,
		maxCorrections:   MaxCorrections,
	}
}

// WithTimeout overrides the per-question deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithDefaultThreshold overrides the similarity cutoff used when the
// caller passes none.
func (s *Service) WithDefaultThreshold(t float64) *Service {
	if t > 0 && t <= 1 {
		s.defaultThreshold = t
	}
	return s
}

// Ask answers one question. The returned response always carries an
// answer; terminal failures surface as message answers, never as a
// missing result.
func (s *Service) Ask(ctx context.Context, question string, threshold float64) Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	state := domain.State{
		RunID:            uuid.NewString(),
		Question:         question,
		PassingThreshold: threshold,
	}
	logger := s.logger.With(zap.String("run_id", state.RunID))
	logger.Info("question received", zap.String("question", question))

	route := s.classify(ctx, &state, logger)

	switch route {
	case domain.ActionParameterPath:
		route = s.runParameterPath(ctx, &state, logger)
	case domain.ActionReject:
	}
	if route == domain.ActionGeneralPath {
		s.runGeneralPath(ctx, &state, logger)
	}

	routeLabel := "parameter"
	for _, step := range state.Steps {
		if step == stepGoGeneral {
			routeLabel = "general"
		}
	}
	outcome := "answered"
	if state.Answer.Kind() == domain.AnswerMessage {
		outcome = "message"
	}
	metrics.PipelineRequestsTotal.WithLabelValues(routeLabel, outcome).Inc()
	metrics.PipelineDuration.WithLabelValues(routeLabel).Observe(time.Since(start).Seconds())
	logger.Info("question answered",
		zap.String("route", routeLabel),
		zap.String("outcome", outcome),
		zap.Strings("steps", state.Steps),
		zap.Duration("elapsed", time.Since(start)))

	return Response{Answer: state.Answer, Cypher: state.Cypher, Steps: state.Steps}
}

// classify runs the guardrail. A question that is not about food, or a
// guardrail failure, terminates immediately; the data paths are never
// reached on an unclassified question.
func (s *Service) classify(ctx context.Context, state *domain.State, logger *zap.Logger) domain.Action {
	state.Steps = append(state.Steps, stepGuardrail)

	isFood, err := s.guardrail.Classify(ctx, state.Question)
	if err != nil {
		logger.Error("guardrail failed", zap.Error(err))
		state.Answer = domain.MessageAnswer(domain.MsgNotFood)
		return domain.ActionReject
	}
	if !isFood {
		logger.Info("question rejected by guardrail")
		state.Answer = domain.MessageAnswer(domain.MsgNotFood)
		return domain.ActionReject
	}
	return domain.ActionParameterPath
}

// runParameterPath extracts entities, fans queries out and aggregates.
// Extraction failure or an empty fan-out falls through to the general
// path instead of terminating.
func (s *Service) runParameterPath(ctx context.Context, state *domain.State, logger *zap.Logger) domain.Action {
	state.Steps = append(state.Steps, stepExtract)

	entities, err := s.extractor.Extract(ctx, state.Question)
	if err != nil || len(entities) == 0 {
		if err != nil {
			logger.Warn("entity extraction failed", zap.Error(err))
		}
		state.Steps = append(state.Steps, stepNoParameter, stepGoGeneral)
		return domain.ActionGeneralPath
	}

	state.Steps = append(state.Steps, stepCompileQueries, stepRunQueries)
	tables := s.fanout.Execute(ctx, entities, state.PassingThreshold)
	if len(tables) == 0 {
		logger.Info("no entity produced rows, falling through")
		state.Steps = append(state.Steps, stepGoGeneral)
		return domain.ActionGeneralPath
	}

	state.Steps = append(state.Steps, stepBuildRecords)
	records := s.aggregate.Rank(tables)
	if len(records) == 0 {
		state.Answer = domain.MessageAnswer(domain.MsgNoResult)
	} else {
		state.Answer = domain.DealsAnswer(records)
	}
	return domain.ActionReturn
}

// runGeneralPath drives the generate/validate/correct/execute loop with
// a hard bound on correction attempts.
func (s *Service) runGeneralPath(ctx context.Context, state *domain.State, logger *zap.Logger) {
	corrections := 0
	update := s.general.Generate(ctx, *state)
	state.Apply(update)

	for {
		switch update.Next {
		case domain.ActionValidate:
			update = s.general.Validate(ctx, *state)
		case domain.ActionCorrect:
			corrections++
			if corrections > s.maxCorrections {
				logger.Warn("giving up on statement correction",
					zap.Int("attempts", corrections-1),
					zap.Error(domain.ErrCorrectionExhausted))
				state.Answer = domain.MessageAnswer(domain.MsgNoResult)
				return
			}
			update = s.general.Correct(ctx, *state)
		case domain.ActionExecute:
			update = s.general.Execute(ctx, *state)
		case domain.ActionReturn, domain.ActionReject:
			return
		default:
			logger.Error("unexpected action", zap.Stringer("action", update.Next))
			state.Answer = domain.MessageAnswer(domain.MsgTemporaryFailure)
			return
		}
		state.Apply(update)
	}
}
