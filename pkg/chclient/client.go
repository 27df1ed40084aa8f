// Package chclient wraps a ClickHouse database/sql connection behind the
// small surface the request compiler's output needs: run a compiled
// statement and scan back its single JSON envelope column, run a raw
// passthrough statement, or wrap a statement in EXPLAIN. Connection
// lifecycle (retry-with-backoff connect, pooling, health checks) follows the
// dbmanager provider pattern this codebase inherited.
package chclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/logger"
	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// Config holds the connection parameters for one named source.
type Config struct {
	Name            string
	DSN             string
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
	RetryAttempts   int
	EnableLogging   bool
	MaxOpenConns    *int
	MaxIdleConns    *int
	ConnMaxLifetime *time.Duration
}

// Client is a connected ClickHouse source.
type Client struct {
	db     *sql.DB
	config Config
	mu     sync.RWMutex
}

// Connect opens a ClickHouse connection, retrying with exponential backoff
// up to cfg.RetryAttempts times (default 3).
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	var db *sql.DB
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, time.Second, 10*time.Second)
			if cfg.EnableLogging {
				logger.Info("Retrying ClickHouse connection: source=%s attempt=%d/%d delay=%v", cfg.Name, attempt+1, attempts, delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, NewConnectionError(cfg.Name, ctx.Err())
			}
		}

		var err error
		db, err = sql.Open("clickhouse", cfg.DSN)
		if err != nil {
			lastErr = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			db.Close()
			db = nil
			continue
		}

		lastErr = nil
		break
	}

	if db == nil {
		return nil, NewConnectionError(cfg.Name, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr))
	}

	if cfg.MaxOpenConns != nil {
		db.SetMaxOpenConns(*cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != nil {
		db.SetMaxIdleConns(*cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != nil {
		db.SetConnMaxLifetime(*cfg.ConnMaxLifetime)
	}

	if cfg.EnableLogging {
		logger.Info("ClickHouse connection established: source=%s", cfg.Name)
	}

	return &Client{db: db, config: cfg}, nil
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// HealthCheck pings the connection with a short timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db == nil {
		return NewConnectionError(c.config.Name, ErrNotConnected)
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(healthCtx); err != nil {
		return NewConnectionError(c.config.Name, err)
	}
	return nil
}

// Stats reports the underlying connection pool statistics.
func (c *Client) Stats() sql.DBStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return sql.DBStats{}
	}
	return c.db.Stats()
}

// namedArgs converts a compiler parameter map into database/sql named
// arguments, one per @<name> placeholder the renderer emitted.
func namedArgs(parameters *orderedmap.OrderedMap[string, parambinder.Param]) ([]interface{}, error) {
	if parameters == nil {
		return nil, nil
	}
	args := make([]interface{}, 0, parameters.Len())
	for pair := parameters.Oldest(); pair != nil; pair = pair.Next() {
		value, err := nativeValue(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pair.Key, err)
		}
		args = append(args, sql.Named(pair.Key, value))
	}
	return args, nil
}

// nativeValue converts a bound parameter into the Go value the ClickHouse
// driver expects, mirroring parambinder's own literal-inlining fallback so
// bound and inlined queries carry identical semantics for complex values.
func nativeValue(p parambinder.Param) (interface{}, error) {
	if p.IsNumber {
		if i, err := p.Number.Int64(); err == nil {
			return i, nil
		}
		return p.Number.Float64()
	}
	switch v := p.Value.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case []interface{}, map[string]interface{}:
		text, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(text), nil
	default:
		return v, nil
	}
}

// Query runs a compiled statement and scans back the single JSON envelope
// column every compiled query projects.
func (c *Client) Query(ctx context.Context, statement *sqlast.Statement, parameters *orderedmap.OrderedMap[string, parambinder.Param]) (json.RawMessage, error) {
	return c.QueryText(ctx, statement.Render(), parameters)
}

// QueryText runs an already-rendered statement, bypassing sqlast.Statement
// entirely. It exists for pkg/querycache's cache-hit path, where the
// rendered SQL text and its parameter set were stored from a previous
// compile and there is no statement AST to re-render.
func (c *Client) QueryText(ctx context.Context, sqlText string, parameters *orderedmap.OrderedMap[string, parambinder.Param]) (json.RawMessage, error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db == nil {
		return nil, NewConnectionError(c.config.Name, ErrNotConnected)
	}

	correlationID := uuid.NewString()
	if c.config.EnableLogging {
		logger.Info("ClickHouse query: source=%s id=%s", c.config.Name, correlationID)
	}

	args, err := namedArgs(parameters)
	if err != nil {
		return nil, NewQueryError(c.config.Name, sqlText, correlationID, err)
	}

	queryCtx := ctx
	if c.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.config.QueryTimeout)
		defer cancel()
	}

	row := db.QueryRowContext(queryCtx, sqlText, args...)
	var envelope string
	if err := row.Scan(&envelope); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewQueryError(c.config.Name, sqlText, correlationID, ErrNoRows)
		}
		return nil, NewQueryError(c.config.Name, sqlText, correlationID, err)
	}
	return json.RawMessage(envelope), nil
}

// Raw executes an arbitrary statement and returns each result row as an
// ordered column-name to value map, preserving column order the way the
// ClickHouse JSON output format does.
func (c *Client) Raw(ctx context.Context, query string, args ...interface{}) ([]*orderedmap.OrderedMap[string, interface{}], error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db == nil {
		return nil, NewConnectionError(c.config.Name, ErrNotConnected)
	}

	correlationID := uuid.NewString()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewQueryError(c.config.Name, query, correlationID, err)
	}
	defer rows.Close()

	return scanRows(rows, c.config.Name, query, correlationID)
}

// Explain wraps a compiled statement's text in EXPLAIN and returns the
// query plan as one string per line, alongside the wrapped statement text.
func (c *Client) Explain(ctx context.Context, statement *sqlast.Statement) (lines []string, explainQuery string, err error) {
	sqlText := statement.Render()
	explainQuery = "EXPLAIN " + sqlText
	correlationID := uuid.NewString()

	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db == nil {
		return nil, explainQuery, NewConnectionError(c.config.Name, ErrNotConnected)
	}

	rows, err := db.QueryContext(ctx, explainQuery)
	if err != nil {
		return nil, explainQuery, NewQueryError(c.config.Name, explainQuery, correlationID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, explainQuery, NewQueryError(c.config.Name, explainQuery, correlationID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, explainQuery, NewQueryError(c.config.Name, explainQuery, correlationID, err)
	}
	return lines, explainQuery, nil
}

func scanRows(rows *sql.Rows, source, query, correlationID string) ([]*orderedmap.OrderedMap[string, interface{}], error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, NewQueryError(source, query, correlationID, err)
	}

	var result []*orderedmap.OrderedMap[string, interface{}]
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, NewQueryError(source, query, correlationID, err)
		}

		row := orderedmap.New[string, interface{}]()
		for i, col := range columns {
			row.Set(col, values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewQueryError(source, query, correlationID, err)
	}
	return result, nil
}

func calculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	delay := initial * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
