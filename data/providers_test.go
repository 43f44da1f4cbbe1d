package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/verax-qa/verax/framework"
	"github.com/verax-qa/verax/sqldb"
)

func writeDataFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeDataFile(t, "users.csv", "id,name,age\nu1,Ana,30\nu2,Bruno,41\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0].String("id"))
	assert.Equal(t, "Ana", rows[0].String("name"))
	// CSV values are always strings.
	assert.Equal(t, "30", rows[0].String("age"))
	assert.True(t, rows[1].Has("name"))
	assert.False(t, rows[1].Has("email"))
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	path := writeDataFile(t, "empty.csv", "id,name\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadCSVDuplicateColumnIsAnError(t *testing.T) {
	path := writeDataFile(t, "dup.csv", "id,name,id\nu1,Ana,u1\n")

	_, err := LoadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestLoadCSVRaggedRecordIsAnError(t *testing.T) {
	path := writeDataFile(t, "ragged.csv", "id,name\nu1\n")

	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoadJSONKeepsTypes(t *testing.T) {
	path := writeDataFile(t, "users.json", `[
		{"id": "u1", "age": 30, "active": true},
		{"id": "u2", "age": 41, "active": false}
	]`)

	rows, err := LoadJSON(path)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0].String("id"))
	assert.Equal(t, 30, rows[0].Int("age"))
	assert.True(t, rows[0].Bool("active"))
	assert.False(t, rows[1].Bool("active"))
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	path := writeDataFile(t, "obj.json", `{"id": "u1"}`)

	_, err := LoadJSON(path)
	assert.Error(t, err)
}

func TestLoadJSONRejectsNonObjectElement(t *testing.T) {
	path := writeDataFile(t, "mixed.json", `[{"id": "u1"}, 42]`)

	_, err := LoadJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
}

func TestFromSQL(t *testing.T) {
	client, err := sqldb.Open(context.Background(), "sqlite", ":memory:",
		sqldb.PoolOptions{MaxOpenConns: 1}, zap.NewNop().Sugar(), framework.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Exec(context.Background(), `CREATE TABLE input (id TEXT, n INTEGER)`)
	require.NoError(t, err)
	_, err = client.Exec(context.Background(), `INSERT INTO input VALUES ('a', 1), ('b', 2)`)
	require.NoError(t, err)

	rows, err := FromSQL(context.Background(), client, `SELECT id, n FROM input ORDER BY id`)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].String("id"))
	assert.Equal(t, 1, rows[0].Int("n"))
	assert.Equal(t, 2, rows[1].Int("n"))
}
