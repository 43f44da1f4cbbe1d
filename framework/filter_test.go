package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFilters(t *testing.T) {
	id := func(path ...string) TestID { return TestID{Path: path} }

	t.Run("no patterns matches everything", func(t *testing.T) {
		var f RegexFilters
		assert.True(t, f.AsFilter(id("anything")))
		assert.True(t, f.AsFilter(id("a", "b", "c")))
	})

	t.Run("must match selects by path element", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustMatch.Set("^users$/create"))
		assert.True(t, f.AsFilter(id("users")))
		assert.True(t, f.AsFilter(id("users", "create")))
		assert.True(t, f.AsFilter(id("users", "create with defaults")))
		assert.False(t, f.AsFilter(id("users", "delete")))
		assert.False(t, f.AsFilter(id("datasets")))
	})

	t.Run("group passes when a subtest may still match", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustMatch.Set("users/create/happy path"))
		assert.True(t, f.AsFilter(id("users")))
		assert.True(t, f.AsFilter(id("users", "create")))
		assert.True(t, f.AsFilter(id("users", "create", "happy path")))
		assert.False(t, f.AsFilter(id("users", "create", "conflict")))
	})

	t.Run("subtests of a matched test run", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustMatch.Set("^users$"))
		assert.True(t, f.AsFilter(id("users", "create", "happy path")))
	})

	t.Run("must not match wins", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustMatch.Set("users"))
		require.NoError(t, f.MustNotMatch.Set("users/delete"))
		assert.True(t, f.AsFilter(id("users", "create")))
		assert.False(t, f.AsFilter(id("users", "delete")))
		assert.False(t, f.AsFilter(id("users", "delete", "missing")))
	})

	t.Run("must not match does not exclude a shallower group", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustNotMatch.Set("users/delete"))
		assert.True(t, f.AsFilter(id("users")))
	})

	t.Run("multiple patterns are alternatives", func(t *testing.T) {
		var f RegexFilters
		require.NoError(t, f.MustMatch.Set("users"))
		require.NoError(t, f.MustMatch.Set("datasets"))
		assert.True(t, f.AsFilter(id("users")))
		assert.True(t, f.AsFilter(id("datasets")))
		assert.False(t, f.AsFilter(id("reports")))
	})

	t.Run("invalid pattern is rejected", func(t *testing.T) {
		var l RegexList
		assert.Error(t, l.Set("("))
	})

	t.Run("flag value round trip", func(t *testing.T) {
		var l RegexList
		require.NoError(t, l.Set("users/create"))
		require.NoError(t, l.Set("datasets"))
		assert.Equal(t, `"users/create" or "datasets"`, l.String())
		assert.True(t, l.IsDefined())
	})
}
