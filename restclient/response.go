package restclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Response is a fully-read HTTP response.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// ContentType returns the Content-Type header without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	for i := 0; i < len(ct); i++ {
		if ct[i] == ';' {
			return ct[:i]
		}
	}
	return ct
}

// String returns the body as a string.
func (r *Response) String() string { return string(r.Body) }

// JSON unmarshals the body into out.
func (r *Response) JSON(out interface{}) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return nil
}

// JSONString extracts a string at a dot-separated path in the JSON body,
// like "items.0.name". It returns "" if the path does not exist.
func (r *Response) JSONString(path string) string {
	return gjson.GetBytes(r.Body, path).String()
}

// JSONInt extracts an integer at a path in the JSON body.
func (r *Response) JSONInt(path string) int64 {
	return gjson.GetBytes(r.Body, path).Int()
}

// JSONFloat extracts a number at a path in the JSON body.
func (r *Response) JSONFloat(path string) float64 {
	return gjson.GetBytes(r.Body, path).Float()
}

// JSONBool extracts a boolean at a path in the JSON body.
func (r *Response) JSONBool(path string) bool {
	return gjson.GetBytes(r.Body, path).Bool()
}

// JSONExists reports whether a path exists in the JSON body.
func (r *Response) JSONExists(path string) bool {
	return gjson.GetBytes(r.Body, path).Exists()
}

// JSONCount returns the number of elements of the array at a path, or 0 if
// the path is not an array.
func (r *Response) JSONCount(path string) int {
	result := gjson.GetBytes(r.Body, path)
	if !result.IsArray() {
		return 0
	}
	return len(result.Array())
}

// JSONValue extracts the value at a path as an ldvalue.Value for structural
// comparison. A missing path yields a null value.
func (r *Response) JSONValue(path string) ldvalue.Value {
	result := gjson.GetBytes(r.Body, path)
	if !result.Exists() {
		return ldvalue.Null()
	}
	return ldvalue.Parse([]byte(result.Raw))
}

// BodyValue parses the whole body as an ldvalue.Value. An unparseable body
// yields a null value.
func (r *Response) BodyValue() ldvalue.Value {
	return ldvalue.Parse(r.Body)
}
