// Package assertions provides a fluent assertion chain over HTTP responses.
// The default chain fails the test at the first unmet assertion; a Soft chain
// collects every failure and reports them together.
package assertions

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/verax-qa/verax/restclient"
)

// TestingT is the subset of a test context the assertion chain needs. Both
// *testing.T and the harness's own test context satisfy it.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

// APIAssertion checks properties of a single response. Zero-valued fields
// are never produced; use Response or Soft.
type APIAssertion struct {
	t        TestingT
	resp     *restclient.Response
	soft     bool
	failures []string
}

// Response starts a fail-fast assertion chain: the first unmet assertion
// stops the test.
func Response(t TestingT, resp *restclient.Response) *APIAssertion {
	return &APIAssertion{t: t, resp: resp}
}

// Soft starts a soft assertion chain: failures accumulate and are reported
// together by AssertAll.
func Soft(t TestingT, resp *restclient.Response) *APIAssertion {
	return &APIAssertion{t: t, resp: resp, soft: true}
}

func (a *APIAssertion) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if a.soft {
		a.failures = append(a.failures, msg)
		return
	}
	a.t.Errorf("%s", msg)
	a.t.FailNow()
}

// ErrorCount returns the number of failures collected so far by a soft
// chain.
func (a *APIAssertion) ErrorCount() int { return len(a.failures) }

// HasErrors reports whether a soft chain has collected any failures.
func (a *APIAssertion) HasErrors() bool { return len(a.failures) > 0 }

// AssertAll reports every failure collected by a soft chain and then stops
// the test if there were any. It is a no-op on a fail-fast chain.
func (a *APIAssertion) AssertAll() {
	if !a.soft || len(a.failures) == 0 {
		return
	}
	a.t.Errorf("%d assertion(s) failed:\n  %s",
		len(a.failures), strings.Join(a.failures, "\n  "))
	a.t.FailNow()
}

// HasStatus asserts the exact response status code.
func (a *APIAssertion) HasStatus(expected int) *APIAssertion {
	if a.resp.Status != expected {
		a.fail("expected status %d, got %d (body: %s)",
			expected, a.resp.Status, truncateForMessage(a.resp.String()))
	}
	return a
}

// IsSuccess asserts a 2xx status.
func (a *APIAssertion) IsSuccess() *APIAssertion {
	if !a.resp.IsSuccess() {
		a.fail("expected a 2xx status, got %d (body: %s)",
			a.resp.Status, truncateForMessage(a.resp.String()))
	}
	return a
}

// HasStatusIn asserts that the status is one of the given codes.
func (a *APIAssertion) HasStatusIn(expected ...int) *APIAssertion {
	for _, code := range expected {
		if a.resp.Status == code {
			return a
		}
	}
	a.fail("expected status in %v, got %d (body: %s)",
		expected, a.resp.Status, truncateForMessage(a.resp.String()))
	return a
}

// HasHeader asserts the exact value of a response header.
func (a *APIAssertion) HasHeader(name, expected string) *APIAssertion {
	if got := a.resp.Header.Get(name); got != expected {
		a.fail("expected header %q to be %q, got %q", name, expected, got)
	}
	return a
}

// HasContentType asserts that the Content-Type header contains the given
// fragment, so "json" accepts "application/json; charset=utf-8".
func (a *APIAssertion) HasContentType(expected string) *APIAssertion {
	if got := a.resp.Header.Get("Content-Type"); !strings.Contains(got, expected) {
		a.fail("expected content type containing %q, got %q", expected, got)
	}
	return a
}

// HasCookie asserts that the response sets a cookie, optionally with an
// expected value ("" accepts any value).
func (a *APIAssertion) HasCookie(name, expectedValue string) *APIAssertion {
	for _, cookie := range (&http.Response{Header: a.resp.Header}).Cookies() {
		if cookie.Name != name {
			continue
		}
		if expectedValue != "" && cookie.Value != expectedValue {
			a.fail("expected cookie %q to be %q, got %q", name, expectedValue, cookie.Value)
		}
		return a
	}
	a.fail("expected response to set cookie %q", name)
	return a
}

// HasResponseTimeUnder asserts the round-trip duration of the request.
func (a *APIAssertion) HasResponseTimeUnder(limit time.Duration) *APIAssertion {
	if a.resp.Duration > limit {
		a.fail("expected response within %s, took %s", limit, a.resp.Duration)
	}
	return a
}

// HasJSONPath asserts that a dot-separated path exists in the JSON body.
func (a *APIAssertion) HasJSONPath(path string) *APIAssertion {
	if !a.resp.JSONExists(path) {
		a.fail("expected JSON path %q to exist in body %s",
			path, truncateForMessage(a.resp.String()))
	}
	return a
}

// HasNoJSONPath asserts that a path does not exist in the JSON body.
func (a *APIAssertion) HasNoJSONPath(path string) *APIAssertion {
	if a.resp.JSONExists(path) {
		a.fail("expected JSON path %q to be absent, found %s",
			path, a.resp.JSONValue(path).JSONString())
	}
	return a
}

// HasJSONValue asserts the value at a path. The expected value may be any
// JSON-representable Go value; comparison is structural, so maps and slices
// compare by content.
func (a *APIAssertion) HasJSONValue(path string, expected interface{}) *APIAssertion {
	actual := a.resp.JSONValue(path)
	want := ldvalue.CopyArbitraryValue(expected)
	if !want.Equal(actual) {
		a.fail("expected JSON path %q to be %s, got %s",
			path, want.JSONString(), actual.JSONString())
	}
	return a
}

// HasJSONString asserts the string at a path.
func (a *APIAssertion) HasJSONString(path, expected string) *APIAssertion {
	if got := a.resp.JSONString(path); got != expected {
		a.fail("expected JSON path %q to be %q, got %q", path, expected, got)
	}
	return a
}

// HasJSONCount asserts the length of the array at a path.
func (a *APIAssertion) HasJSONCount(path string, expected int) *APIAssertion {
	if got := a.resp.JSONCount(path); got != expected {
		a.fail("expected JSON path %q to have %d elements, got %d", path, expected, got)
	}
	return a
}

// BodyContains asserts that the raw body contains a substring.
func (a *APIAssertion) BodyContains(substring string) *APIAssertion {
	if !strings.Contains(a.resp.String(), substring) {
		a.fail("expected body to contain %q, body was %s",
			substring, truncateForMessage(a.resp.String()))
	}
	return a
}

// BodyDoesNotContain asserts that the raw body does not contain a substring.
func (a *APIAssertion) BodyDoesNotContain(substring string) *APIAssertion {
	if strings.Contains(a.resp.String(), substring) {
		a.fail("expected body not to contain %q, body was %s",
			substring, truncateForMessage(a.resp.String()))
	}
	return a
}

// BodyMatchesJSON asserts that the whole body is structurally equal to the
// given JSON document.
func (a *APIAssertion) BodyMatchesJSON(expectedJSON string) *APIAssertion {
	want := ldvalue.Parse([]byte(expectedJSON))
	got := a.resp.BodyValue()
	if !want.Equal(got) {
		a.fail("expected body %s, got %s", want.JSONString(), got.JSONString())
	}
	return a
}

func truncateForMessage(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
