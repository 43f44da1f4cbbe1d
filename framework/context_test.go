package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsSubtestResults(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("passes", func(c *Context) {})
		c.Run("fails", func(c *Context) {
			c.Errorf("something went wrong: %d", 42)
		})
	})

	require.Len(t, results.Tests, 2)
	assert.Equal(t, "passes", results.Tests[0].TestID.String())
	assert.Empty(t, results.Tests[0].Errors)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "fails", results.Failures[0].TestID.String())
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "something went wrong: 42", results.Failures[0].Errors[0].Error())
	assert.False(t, results.OK())
}

func TestFailNowStopsTestButNotRun(t *testing.T) {
	reachedAfterFailNow := false
	ranSecondTest := false
	results := Run(nil, nil, func(c *Context) {
		c.Run("aborts", func(c *Context) {
			c.Errorf("bad")
			c.FailNow()
			reachedAfterFailNow = true
		})
		c.Run("still runs", func(c *Context) {
			ranSecondTest = true
		})
	})

	assert.False(t, reachedAfterFailNow)
	assert.True(t, ranSecondTest)
	assert.Len(t, results.Failures, 1)
}

func TestFailNowWithNoMessageStillFails(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("aborts silently", func(c *Context) {
			c.FailNow()
		})
	})

	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "no failure message")
}

func TestUnexpectedPanicBecomesFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic("boom")
		})
	})

	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "boom")
}

func TestSkipDoesNotRecordFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not supported here")
			c.Errorf("should not be reached")
		})
	})

	require.Len(t, results.Tests, 1)
	assert.True(t, results.Tests[0].Skipped)
	assert.Equal(t, "not supported here", results.Tests[0].SkipReason)
	assert.True(t, results.OK())
}

func TestSubtestIDsAreHierarchical(t *testing.T) {
	var ids []string
	results := Run(nil, nil, func(c *Context) {
		c.Run("outer", func(c *Context) {
			c.Run("inner", func(c *Context) {
				ids = append(ids, c.ID().String())
			})
		})
	})

	assert.Equal(t, []string{"outer/inner"}, ids)
	require.Len(t, results.Tests, 2)
	assert.Equal(t, "outer/inner", results.Tests[0].TestID.String())
	assert.Equal(t, "outer", results.Tests[1].TestID.String())
}

func TestFilterExcludesTests(t *testing.T) {
	ran := map[string]bool{}
	filter := func(id TestID) bool { return id.String() != "excluded" }
	Run(filter, nil, func(c *Context) {
		c.Run("included", func(c *Context) { ran["included"] = true })
		c.Run("excluded", func(c *Context) { ran["excluded"] = true })
	})

	assert.True(t, ran["included"])
	assert.False(t, ran["excluded"])
}

func TestDeferRunsInReverseOrder(t *testing.T) {
	var order []string
	Run(nil, nil, func(c *Context) {
		c.Run("with cleanups", func(c *Context) {
			c.Defer(func() { order = append(order, "first registered") })
			c.Defer(func() { order = append(order, "second registered") })
		})
	})

	assert.Equal(t, []string{"second registered", "first registered"}, order)
}

func TestAttachmentsAppearInResult(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("attaches", func(c *Context) {
			c.Attach("payload", "application/json", []byte(`{"a":1}`))
		})
	})

	require.Len(t, results.Tests, 1)
	require.Len(t, results.Tests[0].Attachments, 1)
	assert.Equal(t, "payload", results.Tests[0].Attachments[0].Name)
}

type recordingTestLogger struct {
	started  []string
	finished []string
	skipped  []string
	errs     []error
}

func (r *recordingTestLogger) TestStarted(id TestID)       { r.started = append(r.started, id.String()) }
func (r *recordingTestLogger) TestError(id TestID, err error) { r.errs = append(r.errs, err) }
func (r *recordingTestLogger) TestFinished(id TestID, result TestResult, debugOutput CapturedOutput) {
	r.finished = append(r.finished, id.String())
}
func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.skipped = append(r.skipped, id.String())
}

func TestLoggerReceivesEvents(t *testing.T) {
	logger := &recordingTestLogger{}
	Run(nil, logger, func(c *Context) {
		c.Run("ok", func(c *Context) {})
		c.Run("skipped", func(c *Context) { c.Skip() })
		c.Run("bad", func(c *Context) { c.Errorf("oops") })
	})

	assert.Equal(t, []string{"ok", "skipped", "bad"}, logger.started)
	assert.Equal(t, []string{"ok", "bad"}, logger.finished)
	assert.Equal(t, []string{"skipped"}, logger.skipped)
	require.Len(t, logger.errs, 1)
	assert.Equal(t, errors.New("oops"), logger.errs[0])
}
