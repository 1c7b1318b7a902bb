// Package openai talks to an OpenAI-compatible chat completion API for
// question classification, entity extraction and Cypher authoring, and
// to the embeddings API for dense vectors. Every structured call pins a
// JSON schema on the response.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/metrics"
)

// ExampleSource selects few-shot question/statement pairs for a
// question.
type ExampleSource interface {
	Select(ctx context.Context, question string) []domain.QAExample
}

// LLM is the language model client behind the pipeline's reasoning
// stages.
type LLM struct {
	client   *openai.Client
	model    string
	examples ExampleSource
	logger   *zap.Logger
}

// LLMConfig holds the language model settings.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Examples may be nil; generation then runs without few-shot pairs.
	Examples ExampleSource
	Logger   *zap.Logger
}

// NewLLM creates an OpenAI-compatible language model client.
func NewLLM(cfg *LLMConfig) *LLM {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &LLM{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		examples: cfg.Examples,
		logger:   cfg.Logger,
	}
}

// Classify reports whether the question is about food ordering or food
// details.
func (l *LLM) Classify(ctx context.Context, question string) (bool, error) {
	var out guardrailDTO
	if err := l.complete(ctx, "guardrail", promptGuardrail, question, "guardrail", schemaGuardrail, &out); err != nil {
		return false, fmt.Errorf("%w: %s", domain.ErrClassification, err)
	}
	return out.IsFoodRelated, nil
}

// Extract parses structured entities out of a food question. An empty
// slice means the question carries no extractable parameters.
func (l *LLM) Extract(ctx context.Context, question string) ([]domain.Entity, error) {
	var out extractDTO
	if err := l.complete(ctx, "extract", promptExtract, question, "entities", schemaExtract, &out); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtraction, err)
	}

	entities := make([]domain.Entity, 0, len(out.Entities))
	for _, dto := range out.Entities {
		if dto.isZero() {
			continue
		}
		entities = append(entities, dto.toEntity())
	}
	return entities, nil
}

// GenerateCypher writes a candidate statement for the question.
func (l *LLM) GenerateCypher(ctx context.Context, question string, schema *domain.Schema) (string, error) {
	var b strings.Builder
	b.WriteString("Schema:\n")
	b.WriteString(schema.String())

	if l.examples != nil {
		for _, ex := range l.examples.Select(ctx, question) {
			fmt.Fprintf(&b, "\nQuestion: %s\nCypher: %s\n", ex.Question, ex.Cypher)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)

	var out cypherDTO
	if err := l.complete(ctx, "generate", promptGenerate, b.String(), "cypher", schemaCypher, &out); err != nil {
		return "", err
	}
	return stripFences(out.Cypher), nil
}

// ReviewCypher checks the statement against the schema and the question.
func (l *LLM) ReviewCypher(ctx context.Context, question, cypher string, schema *domain.Schema) (domain.CypherReview, error) {
	user := fmt.Sprintf("Schema:\n%s\nQuestion: %s\nStatement:\n%s", schema.String(), question, cypher)

	var out reviewDTO
	if err := l.complete(ctx, "review", promptReview, user, "review", schemaReview, &out); err != nil {
		return domain.CypherReview{}, err
	}

	review := domain.CypherReview{Errors: out.Errors}
	for _, f := range out.Filters {
		review.Filters = append(review.Filters, domain.PropertyFilter{Label: f.Label, Key: f.Key, Value: f.Value})
	}
	return review, nil
}

// CorrectCypher rewrites the statement so the reported problems are
// resolved.
func (l *LLM) CorrectCypher(ctx context.Context, question, cypher string, problems []string, schema *domain.Schema) (string, error) {
	user := fmt.Sprintf("Schema:\n%s\nQuestion: %s\nStatement:\n%s\nProblems:\n- %s",
		schema.String(), question, cypher, strings.Join(problems, "\n- "))

	var out cypherDTO
	if err := l.complete(ctx, "correct", promptCorrect, user, "cypher", schemaCypher, &out); err != nil {
		return "", err
	}
	return stripFences(out.Cypher), nil
}

// complete runs one schema-pinned chat completion and decodes the
// response into out.
func (l *LLM) complete(ctx context.Context, op, system, user, schemaName string, schema json.RawMessage, out any) error {
	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s completion: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s completion: empty response", op)
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s completion: decode response: %w", op, err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(op, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
	l.logger.Debug("llm call finished",
		zap.String("op", op),
		zap.Duration("duration", duration))
	return nil
}

// stripFences removes markdown code fences some models wrap statements
// in despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```cypher")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
