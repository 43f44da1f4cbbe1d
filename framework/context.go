package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context represents a running test or subtest. It provides the same basic
// functionality as Go's testing.T, but outside of the Go test runner, plus
// debug output capturing and report attachments.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	attachments []Attachment
	cleanups    []func()
}

// Run executes a top-level test action and returns the accumulated results.
// The action normally just calls Context.Run for each test group.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		r := recover()
		if r != nil && !c.skipped {
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		for i := len(c.cleanups) - 1; i >= 0; i-- {
			c.cleanups[i]()
		}
		if len(c.id.Path) == 0 && !c.failed {
			// The root context only records a result if setup logic failed in it.
			return
		}
		result := c.result()
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

func (c *Context) result() TestResult {
	return TestResult{
		TestID:      c.id,
		Errors:      c.errors,
		Skipped:     c.skipped,
		SkipReason:  c.skipReason,
		Attachments: c.attachments,
	}
}

// ID returns the full path name of the current test.
func (c *Context) ID() TestID {
	return c.id
}

// Run executes a subtest in its own Context. A failure in the subtest does
// not fail the parent, but is recorded in the overall results.
func (c *Context) Run(name string, action func(*Context)) {
	id := TestID{Path: append(append([]string(nil), c.id.Path...), name)}

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.result(), c1.debugLogger.Output())
	}
}

// Errorf records a test failure without stopping the test. It has the same
// signature as testing.T.Errorf so assertion libraries can call it.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// FailNow stops the test immediately. It must be called from the goroutine
// that is running the test.
func (c *Context) FailNow() {
	panic(c)
}

// Skip stops the test immediately without recording a failure.
func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

// SkipWithReason is Skip with an explanation that appears in the output.
func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Defer registers a function to run when this test scope ends, in reverse
// registration order.
func (c *Context) Defer(cleanup func()) {
	c.cleanups = append(c.cleanups, cleanup)
}

// Debug captures debug output for the test. The output is passed to the test
// logger when the test ends.
func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger that writes to the test's captured debug output.
func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}

// Attach records a payload to be included with this test in report output.
func (c *Context) Attach(name, mediaType string, body []byte) {
	c.attachments = append(c.attachments, Attachment{Name: name, MediaType: mediaType, Body: body})
}
