package framework

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Results accumulates the outcome of every test that was executed in a run.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

// TestResult is the outcome of a single test, including any report payloads
// it attached.
type TestResult struct {
	TestID      TestID
	Errors      []error
	Skipped     bool
	SkipReason  string
	Attachments []Attachment
}

// Attachment is an arbitrary payload recorded by a test for report output.
type Attachment struct {
	Name      string
	MediaType string
	Body      []byte
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Append merges another result set into this one, preserving order.
func (r *Results) Append(other Results) {
	r.Tests = append(r.Tests, other.Tests...)
	r.Failures = append(r.Failures, other.Failures...)
}

// TestID identifies a test as the path of the names of its enclosing groups.
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// PrintResults writes a human-readable summary of a test run.
func PrintResults(w io.Writer, results Results) {
	skipped := 0
	for _, t := range results.Tests {
		if t.Skipped {
			skipped++
		}
	}
	executed := len(results.Tests) - skipped

	if results.OK() {
		color.New(color.FgGreen).Fprintf(w, "All tests passed")
		fmt.Fprintf(w, " (%d executed, %d skipped)\n", executed, skipped)
		return
	}

	color.New(color.FgRed).Fprintf(w, "FAILED TESTS (%d):\n", len(results.Failures))
	for _, f := range results.Failures {
		fmt.Fprintf(w, "  %s\n", f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "%d of %d executed tests failed (%d skipped)\n",
		len(results.Failures), executed, skipped)
}
