package assertions

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verax-qa/verax/restclient"
)

type fakeT struct {
	messages []string
	stopped  bool
}

func (f *fakeT) Errorf(format string, args ...interface{}) {
	f.messages = append(f.messages, format)
	_ = args
}

func (f *fakeT) FailNow() { f.stopped = true }

func jsonResponse(status int, body string) *restclient.Response {
	return &restclient.Response{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		Body:   []byte(body),
	}
}

func TestPassingChainDoesNotTouchT(t *testing.T) {
	ft := &fakeT{}
	Response(ft, jsonResponse(200, `{"id":"u1","tags":["a","b"],"profile":{"age":30}}`)).
		HasStatus(200).
		IsSuccess().
		HasContentType("application/json").
		HasJSONPath("profile.age").
		HasJSONString("id", "u1").
		HasJSONValue("profile", map[string]interface{}{"age": 30}).
		HasJSONCount("tags", 2).
		BodyContains("u1")

	assert.Empty(t, ft.messages)
	assert.False(t, ft.stopped)
}

func TestHasContentTypeMatchesSubstring(t *testing.T) {
	ft := &fakeT{}
	Response(ft, jsonResponse(200, `{}`)).
		HasContentType("json").
		HasContentType("application/json; charset=utf-8")
	assert.Empty(t, ft.messages)

	Soft(ft, jsonResponse(200, `{}`)).HasContentType("xml").AssertAll()
	assert.NotEmpty(t, ft.messages)
}

func TestFailFastStopsAtFirstFailure(t *testing.T) {
	ft := &fakeT{}
	a := Response(ft, jsonResponse(404, `{"error":"not found"}`))
	a.HasStatus(200)

	require.Len(t, ft.messages, 1)
	assert.True(t, ft.stopped)
}

func TestSoftCollectsAllFailures(t *testing.T) {
	ft := &fakeT{}
	a := Soft(ft, jsonResponse(404, `{"error":"not found"}`))
	a.HasStatus(200).
		HasJSONString("id", "u1").
		HasHeader("ETag", "abc")

	// Nothing is reported until AssertAll.
	assert.Empty(t, ft.messages)
	assert.False(t, ft.stopped)

	a.AssertAll()
	require.Len(t, ft.messages, 1)
	assert.True(t, ft.stopped)
	assert.Len(t, a.failures, 3)
}

func TestSoftWithNoFailuresIsQuiet(t *testing.T) {
	ft := &fakeT{}
	a := Soft(ft, jsonResponse(200, `{}`))
	a.HasStatus(200)
	a.AssertAll()

	assert.Empty(t, ft.messages)
	assert.False(t, ft.stopped)
}

func TestHasJSONValueComparesStructurally(t *testing.T) {
	resp := jsonResponse(200, `{"items":[{"n":1},{"n":2}],"flag":true}`)

	ft := &fakeT{}
	Response(ft, resp).
		HasJSONValue("items", []interface{}{
			map[string]interface{}{"n": 1},
			map[string]interface{}{"n": 2},
		}).
		HasJSONValue("flag", true).
		HasJSONValue("items.1.n", 2)
	assert.False(t, ft.stopped)

	Response(ft, resp).HasJSONValue("flag", false)
	assert.True(t, ft.stopped)
}

func TestBodyMatchesJSONIgnoresKeyOrder(t *testing.T) {
	resp := jsonResponse(200, `{"a":1,"b":{"c":"x"}}`)

	ft := &fakeT{}
	Response(ft, resp).BodyMatchesJSON(`{"b":{"c":"x"},"a":1}`)
	assert.False(t, ft.stopped)

	Response(ft, resp).BodyMatchesJSON(`{"a":2}`)
	assert.True(t, ft.stopped)
}

func TestStatusInAndBodyNegations(t *testing.T) {
	resp := jsonResponse(202, `{"state":"queued"}`)

	ft := &fakeT{}
	Response(ft, resp).
		HasStatusIn(200, 201, 202).
		BodyDoesNotContain("error").
		HasNoJSONPath("error")
	assert.False(t, ft.stopped)

	Response(ft, resp).HasStatusIn(200, 201)
	assert.True(t, ft.stopped)

	ft2 := &fakeT{}
	Response(ft2, resp).HasNoJSONPath("state")
	assert.True(t, ft2.stopped)
}

func TestResponseTimeAndCookies(t *testing.T) {
	resp := jsonResponse(200, `{}`)
	resp.Duration = 20 * time.Millisecond
	resp.Header.Add("Set-Cookie", "session=abc123; Path=/")

	ft := &fakeT{}
	Response(ft, resp).
		HasResponseTimeUnder(time.Second).
		HasCookie("session", "abc123").
		HasCookie("session", "")
	assert.False(t, ft.stopped)

	Response(ft, resp).HasResponseTimeUnder(time.Millisecond)
	assert.True(t, ft.stopped)

	ft2 := &fakeT{}
	Response(ft2, resp).HasCookie("missing", "")
	assert.True(t, ft2.stopped)
}

func TestSoftErrorAccessors(t *testing.T) {
	ft := &fakeT{}
	a := Soft(ft, jsonResponse(500, `{}`))
	assert.False(t, a.HasErrors())

	a.HasStatus(200).HasJSONPath("id")
	assert.True(t, a.HasErrors())
	assert.Equal(t, 2, a.ErrorCount())
}

func TestMissingJSONPathFails(t *testing.T) {
	ft := &fakeT{}
	Response(ft, jsonResponse(200, `{"id":"u1"}`)).HasJSONPath("profile.age")
	assert.True(t, ft.stopped)
}
