// Package graph executes Cypher statements against the property graph
// with connectivity verification and bounded retry on transient
// failures.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconf "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	neo4jdb "github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"go.uber.org/zap"

	"github.com/crave-labs/menugraph/internal/domain"
	"github.com/crave-labs/menugraph/internal/metrics"
)

// Config holds graph store connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	// Pool settings sized to the expected entity fan-out concurrency.
	MaxPoolSize        int
	ConnectionLifetime time.Duration
	AcquisitionTimeout time.Duration
	ConnectTimeout     time.Duration
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 50
	}
	if c.ConnectionLifetime <= 0 {
		c.ConnectionLifetime = 30 * time.Minute
	}
	if c.AcquisitionTimeout <= 0 {
		c.AcquisitionTimeout = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// runner abstracts the driver for retry-loop tests.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Verify(ctx context.Context) error
}

// Client is a pooled graph store client with per-call retry.
type Client struct {
	runner      runner
	closer      func(context.Context) error
	logger      *zap.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient connects to the graph store.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconf.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.MaxConnectionLifetime = cfg.ConnectionLifetime
			c.ConnectionAcquisitionTimeout = cfg.AcquisitionTimeout
			c.SocketConnectTimeout = cfg.ConnectTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}

	return &Client{
		runner:      &driverRunner{driver: driver, database: cfg.Database},
		closer:      driver.Close,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}, nil
}

// newClientWithRunner builds a client over a custom runner. Test seam.
func newClientWithRunner(r runner, logger *zap.Logger, baseDelay time.Duration) *Client {
	return &Client{
		runner:      r,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   baseDelay,
	}
}

// Close shuts down the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	if c.closer == nil {
		return nil
	}
	return c.closer(ctx)
}

// Query executes a Cypher statement with its parameters and returns the
// raw row set. Transient connectivity failures are retried up to 3
// times with exponential backoff; syntax errors propagate immediately.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.GraphQueryRetriesTotal.Inc()
			delay := c.baseDelay * time.Duration(1<<attempt)
			c.logger.Warn("retrying graph query",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("graph query canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if err := c.runner.Verify(ctx); err != nil {
			lastErr = err
			continue
		}

		rows, err := c.runner.Run(ctx, cypher, params)
		if err == nil {
			metrics.GraphQueriesTotal.WithLabelValues("ok").Inc()
			return rows, nil
		}

		if isSyntaxError(err) {
			metrics.GraphQueriesTotal.WithLabelValues("syntax_error").Inc()
			return nil, domain.NewQueryExecutionError(err.Error(), domain.ErrQuerySyntax)
		}
		if !isTransient(err) {
			metrics.GraphQueriesTotal.WithLabelValues("error").Inc()
			return nil, &domain.QueryExecutionError{Message: err.Error(), Err: err}
		}
		lastErr = err
	}

	metrics.GraphQueriesTotal.WithLabelValues("transient_error").Inc()
	return nil, domain.NewQueryExecutionError(lastErr.Error(), domain.ErrQueryTransient)
}

// isSyntaxError reports whether the backend rejected the statement as
// malformed. Never retried.
func isSyntaxError(err error) bool {
	var neoErr *neo4jdb.Neo4jError
	if errors.As(err, &neoErr) {
		return strings.Contains(neoErr.Code, "SyntaxError")
	}
	return false
}

// isTransient reports whether the failure is worth retrying.
func isTransient(err error) bool {
	if neo4j.IsConnectivityError(err) {
		return true
	}
	var neoErr *neo4jdb.Neo4jError
	if errors.As(err, &neoErr) {
		return strings.HasPrefix(neoErr.Code, "Neo.TransientError")
	}
	return false
}

// driverRunner runs statements on auto-commit read sessions.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverRunner) Verify(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

func (d *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: d.database,
	})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}
