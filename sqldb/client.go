// Package sqldb wraps database/sql for test suites that verify relational
// state. Results come back as rows of column-name-to-value maps so tests can
// compare them without declaring scan targets.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/framework"
	"github.com/verax-qa/verax/logging"
)

// Row is a single result row keyed by column name. Byte slice values are
// converted to strings.
type Row map[string]interface{}

// PoolOptions configures the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Client is a database handle for one test run. It is safe for concurrent
// use; Close releases the pool.
type Client struct {
	db    *sql.DB
	logs  *zap.SugaredLogger
	debug framework.Logger
}

// Open connects to a database and verifies the connection with a ping.
func Open(ctx context.Context, driver, dsn string, pool PoolOptions, logs *zap.SugaredLogger, debug framework.Logger) (*Client, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	logs.Infow("database connected", "driver", driver)
	return &Client{db: db, logs: logs, debug: debug}, nil
}

// FromConfig opens a client using the harness configuration.
func FromConfig(ctx context.Context, cfg config.SQLConfig, logs *zap.SugaredLogger, debug framework.Logger) (*Client, error) {
	return Open(ctx, cfg.Driver, cfg.DSN, PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Value(),
	}, logs, debug)
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB exposes the underlying pool for cases the wrapper does not cover.
func (c *Client) DB() *sql.DB { return c.db }

// Query runs a SELECT and returns every row as a map.
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	logging.Query(c.logs, "select", query, args)
	c.debug.Printf("query: %s %v", query, args)
	started := time.Now()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logging.QueryResult(c.logs, "select", len(out), time.Since(started))
	return out, nil
}

// QueryOne runs a SELECT expected to return exactly one row.
func (c *Client) QueryOne(ctx context.Context, query string, args ...interface{}) (Row, error) {
	rows, err := c.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("expected exactly one row, got %d", len(rows))
	}
	return rows[0], nil
}

// QueryValue runs a SELECT and returns the first column of the first row, or
// nil when the query matched nothing.
func (c *Client) QueryValue(ctx context.Context, query string, args ...interface{}) (interface{}, error) {
	logging.Query(c.logs, "scalar", query, args)
	c.debug.Printf("query: %s %v", query, args)

	var value interface{}
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scalar query failed: %w", err)
	}
	if b, ok := value.([]byte); ok {
		return string(b), nil
	}
	return value, nil
}

// Count returns the number of rows of a table matching an optional WHERE
// clause (without the WHERE keyword).
func (c *Client) Count(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	value, err := c.QueryValue(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("count returned %T, not an integer", value)
	}
	return n, nil
}

// Exec runs a statement and returns the number of affected rows.
func (c *Client) Exec(ctx context.Context, statement string, args ...interface{}) (int64, error) {
	logging.Query(c.logs, "exec", statement, args)
	c.debug.Printf("exec: %s %v", statement, args)
	started := time.Now()

	result, err := c.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, fmt.Errorf("statement failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		affected = 0
	}
	logging.QueryResult(c.logs, "exec", int(affected), time.Since(started))
	return affected, nil
}

// TableExists reports whether a table can be selected from.
func (c *Client) TableExists(ctx context.Context, table string) bool {
	rows, err := c.db.QueryContext(ctx, "SELECT 1 FROM "+table+" WHERE 1=0")
	if err != nil {
		return false
	}
	// The result set must be drained so the connection goes back to the pool.
	_ = rows.Close()
	return true
}
