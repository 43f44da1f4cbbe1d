package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/verax-qa/verax/framework"
)

func openTestDB(t *testing.T) *Client {
	t.Helper()
	c, err := Open(context.Background(), "sqlite", ":memory:", PoolOptions{MaxOpenConns: 1},
		zap.NewNop().Sugar(), framework.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Exec(context.Background(),
		`CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT, age INTEGER)`)
	require.NoError(t, err)
	for _, args := range [][]interface{}{
		{"u1", "Ana", 30},
		{"u2", "Bruno", 41},
		{"u3", "Carla", 30},
	} {
		_, err = c.Exec(context.Background(),
			`INSERT INTO users (id, name, age) VALUES (?, ?, ?)`, args...)
		require.NoError(t, err)
	}
	return c
}

func TestQueryReturnsRowsAsMaps(t *testing.T) {
	c := openTestDB(t)

	rows, err := c.Query(context.Background(),
		`SELECT id, name, age FROM users WHERE age = ? ORDER BY id`, 30)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0]["id"])
	assert.Equal(t, "Ana", rows[0]["name"])
	assert.Equal(t, int64(30), rows[0]["age"])
	assert.Equal(t, "u3", rows[1]["id"])
}

func TestQueryWithNoMatchesReturnsEmpty(t *testing.T) {
	c := openTestDB(t)

	rows, err := c.Query(context.Background(), `SELECT * FROM users WHERE age > 100`)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryOne(t *testing.T) {
	c := openTestDB(t)

	row, err := c.QueryOne(context.Background(), `SELECT name FROM users WHERE id = ?`, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bruno", row["name"])

	_, err = c.QueryOne(context.Background(), `SELECT * FROM users`)
	assert.Error(t, err)

	_, err = c.QueryOne(context.Background(), `SELECT * FROM users WHERE id = 'nope'`)
	assert.Error(t, err)
}

func TestQueryValueAndCount(t *testing.T) {
	c := openTestDB(t)

	value, err := c.QueryValue(context.Background(), `SELECT name FROM users WHERE id = ?`, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", value)

	value, err = c.QueryValue(context.Background(), `SELECT name FROM users WHERE id = 'nope'`)
	require.NoError(t, err)
	assert.Nil(t, value)

	n, err := c.Count(context.Background(), "users", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.Count(context.Background(), "users", "age = ?", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestExecReportsAffectedRows(t *testing.T) {
	c := openTestDB(t)

	affected, err := c.Exec(context.Background(), `UPDATE users SET age = age + 1 WHERE age = 30`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = c.Exec(context.Background(), `DELETE FROM users WHERE id = 'u2'`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = c.Exec(context.Background(), `UPDATE no_such_table SET x = 1`)
	assert.Error(t, err)
}

func TestTableExists(t *testing.T) {
	c := openTestDB(t)

	assert.True(t, c.TableExists(context.Background(), "users"))
	assert.False(t, c.TableExists(context.Background(), "missing_table"))
}

func TestTableExistsReleasesPoolConnection(t *testing.T) {
	// Pool of one: if the existence check held its connection, the
	// following query would block until the deadline.
	c := openTestDB(t)
	require.True(t, c.TableExists(context.Background(), "users"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := c.Query(ctx, `SELECT id FROM users ORDER BY id`)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestOpenFailsForBadDriver(t *testing.T) {
	_, err := Open(context.Background(), "no-such-driver", "dsn", PoolOptions{},
		zap.NewNop().Sugar(), framework.NullLogger())
	assert.Error(t, err)
}
