// Package similarity finds dishes that fuzzily match free query text,
// fusing vector KNN and BM25 full-text hits over a Redis search index.
package similarity

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/metrics"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds connection and index settings for the similarity store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int

	// DishIndex holds one document per dish with an id field, a content
	// text field and a vector field.
	DishIndex string
	// ExampleIndex holds curated question/statement pairs for few-shot
	// prompting.
	ExampleIndex string
}

// ApplyDefaults fills empty index names.
func (c *Config) ApplyDefaults() {
	if c.DishIndex == "" {
		c.DishIndex = "dish_idx"
	}
	if c.ExampleIndex == "" {
		c.ExampleIndex = "cypher_example_idx"
	}
}

// Store implements hybrid dish search via rueidis.
type Store struct {
	client   rueidis.Client
	embedder Embedder
	cfg      Config
}

// NewStore connects to the search backend.
func NewStore(cfg Config, embedder Embedder) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	cfg.ApplyDefaults()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, embedder: embedder, cfg: cfg}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Search returns up to limit dishes matching the text, scored in [0, 1]
// with higher meaning more similar. Vector hits carry cosine similarity;
// lexical hits carry their BM25 score normalized by the best lexical
// score, so both channels stay comparable against an absolute threshold.
// A dish found by both channels keeps the higher score.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]domain.Scored, error) {
	if text == "" || limit <= 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	knn, err := s.searchKNN(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	lexical, err := s.searchBM25(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	fused := fuseMax(knn, lexical)
	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].Score != fused[b].Score {
			return fused[a].Score > fused[b].Score
		}
		return fused[a].ID < fused[b].ID
	})
	if len(fused) > limit {
		fused = fused[:limit]
	}

	metrics.SimilarityCandidates.Observe(float64(len(fused)))
	return fused, nil
}

// Examples returns the k curated question/statement pairs most similar
// to the question.
func (s *Store) Examples(ctx context.Context, question string, k int) ([]domain.QAExample, error) {
	if question == "" || k <= 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	query := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k)
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(
		s.cfg.ExampleIndex, query,
		"RETURN", "2", "question", "cypher",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("example search: %w", err)
	}

	var examples []domain.QAExample
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(fields)
		if m["question"] == "" || m["cypher"] == "" {
			continue
		}
		examples = append(examples, domain.QAExample{Question: m["question"], Cypher: m["cypher"]})
	}
	return examples, nil
}

func (s *Store) searchKNN(ctx context.Context, vector []float32, k int) ([]domain.Scored, error) {
	query := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k)
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(
		s.cfg.DishIndex, query,
		"RETURN", "2", "id", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, err
	}

	var out []domain.Scored
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(fields)
		if m["id"] == "" {
			continue
		}
		distance, err := strconv.ParseFloat(m["__vector_score"], 64)
		if err != nil {
			continue
		}
		// cosine distance to similarity, clamped to [0, 1]
		out = append(out, domain.Scored{ID: m["id"], Score: math.Max(0, 1.0-distance)})
	}
	return out, nil
}

func (s *Store) searchBM25(ctx context.Context, text string, k int) ([]domain.Scored, error) {
	query := fmt.Sprintf("@content:(%s)", escapeQuery(text))
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(
		s.cfg.DishIndex, query,
		"RETURN", "1", "id",
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Build()

	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, err
	}

	var out []domain.Scored
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(fields)
		if m["id"] == "" {
			continue
		}
		out = append(out, domain.Scored{ID: m["id"], Score: score})
	}
	return out, nil
}

// fuseMax normalizes lexical scores by the best lexical score and keeps
// the higher of the two channel scores per dish.
func fuseMax(knn, lexical []domain.Scored) []domain.Scored {
	var maxLex float64
	for _, r := range lexical {
		if r.Score > maxLex {
			maxLex = r.Score
		}
	}

	merged := make(map[string]float64, len(knn)+len(lexical))
	var order []string
	for _, r := range knn {
		if _, ok := merged[r.ID]; !ok {
			order = append(order, r.ID)
		}
		if r.Score > merged[r.ID] {
			merged[r.ID] = r.Score
		}
	}
	for _, r := range lexical {
		score := 0.0
		if maxLex > 0 {
			score = r.Score / maxLex
		}
		if _, ok := merged[r.ID]; !ok {
			order = append(order, r.ID)
		}
		if score > merged[r.ID] {
			merged[r.ID] = score
		}
	}

	out := make([]domain.Scored, 0, len(order))
	for _, id := range order {
		out = append(out, domain.Scored{ID: id, Score: merged[id]})
	}
	return out
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`,`, `\,`,
	`:`, `\:`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
