package restclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verax-qa/verax/logging"
)

// RequestBuilder accumulates the parts of a request. All methods return the
// builder, so calls chain; Send performs the request. A builder is for a
// single request and is not safe for concurrent use.
type RequestBuilder struct {
	client     *Client
	method     string
	path       string
	pathParams map[string]string
	query      url.Values
	headers    http.Header
	body       []byte
	err        error
}

// PathParam fills a {name} placeholder in the request path. The value is
// URL-escaped.
func (r *RequestBuilder) PathParam(name, value string) *RequestBuilder {
	if r.pathParams == nil {
		r.pathParams = map[string]string{}
	}
	r.pathParams[name] = value
	return r
}

// Query adds a query string parameter.
func (r *RequestBuilder) Query(name, value string) *RequestBuilder {
	r.query.Add(name, value)
	return r
}

// Header adds a request header.
func (r *RequestBuilder) Header(name, value string) *RequestBuilder {
	r.headers.Add(name, value)
	return r
}

// Accept sets the Accept header.
func (r *RequestBuilder) Accept(mediaType string) *RequestBuilder {
	r.headers.Set("Accept", mediaType)
	return r
}

// ContentType sets the Content-Type header, normally implied by JSONBody or
// RawBody.
func (r *RequestBuilder) ContentType(mediaType string) *RequestBuilder {
	r.headers.Set("Content-Type", mediaType)
	return r
}

// BasicAuth sets an Authorization header with basic credentials.
func (r *RequestBuilder) BasicAuth(username, password string) *RequestBuilder {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	r.headers.Set("Authorization", "Basic "+token)
	return r
}

// BearerAuth sets an Authorization header with a bearer token.
func (r *RequestBuilder) BearerAuth(token string) *RequestBuilder {
	r.headers.Set("Authorization", "Bearer "+token)
	return r
}

// CustomAuth sets an arbitrary authorization header.
func (r *RequestBuilder) CustomAuth(name, value string) *RequestBuilder {
	r.headers.Set(name, value)
	return r
}

// JSONBody marshals value as the request body and sets the content type.
func (r *RequestBuilder) JSONBody(value interface{}) *RequestBuilder {
	raw, err := json.Marshal(value)
	if err != nil {
		r.err = fmt.Errorf("marshaling request body: %w", err)
		return r
	}
	r.body = raw
	r.headers.Set("Content-Type", "application/json")
	return r
}

// RawBody sets the request body and content type verbatim.
func (r *RequestBuilder) RawBody(contentType string, body []byte) *RequestBuilder {
	r.body = body
	r.headers.Set("Content-Type", contentType)
	return r
}

func (r *RequestBuilder) resolveURL() (string, error) {
	path := r.path
	for name, value := range r.pathParams {
		placeholder := "{" + name + "}"
		if !strings.Contains(path, placeholder) {
			return "", fmt.Errorf("path %q has no parameter %q", r.path, name)
		}
		path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
	}
	if i := strings.IndexAny(path, "{}"); i >= 0 {
		return "", fmt.Errorf("path %q has an unresolved parameter", path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := r.client.baseURL + path
	if len(r.query) > 0 {
		full += "?" + r.query.Encode()
	}
	return full, nil
}

// build creates a fresh http.Request. The body is kept as a byte slice so
// each retry attempt gets a new reader.
func (r *RequestBuilder) build(ctx context.Context) (*http.Request, error) {
	full, err := r.resolveURL()
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, full, body)
	if err != nil {
		return nil, err
	}
	for name, values := range r.client.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	for name, values := range r.headers {
		// Per-request headers replace any default with the same name.
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return req, nil
}

// Send performs the request, retrying on transport errors and 5xx responses
// per the client's retry policy. The returned Response has the body fully
// read. A non-2xx status is not an error; assertions deal with status codes.
func (r *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	if r.err != nil {
		return nil, r.err
	}
	c := r.client

	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := r.build(ctx)
		if err != nil {
			return nil, err
		}
		if attempt == 0 {
			if c.logBodies {
				logging.Request(c.logs, req.Method, req.URL.String(), req.Header, r.body)
			} else {
				c.logs.Debugw("sending request", "method", req.Method, "url", req.URL.String())
			}
			c.debug.Printf("%s %s", req.Method, req.URL.String())
			if c.logBodies && len(r.body) > 0 {
				c.debug.Printf("request body: %s", logging.Truncate(string(r.body)))
			}
		} else {
			c.debug.Printf("retrying %s %s (attempt %d of %d)",
				req.Method, req.URL.String(), attempt+1, c.retry.MaxRetries+1)
		}

		started := time.Now()
		resp, err := c.httpClient.Do(req)
		elapsed := time.Since(started)

		retryable := false
		switch {
		case err != nil:
			lastErr = err
			retryable = true
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			retryable = true
		}

		if !retryable {
			return readResponse(c, resp, elapsed)
		}
		if attempt >= c.retry.MaxRetries {
			// Retries exhausted. A transport error is returned as an
			// error; a 5xx is returned as a response so tests can
			// assert on it.
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", r.method, req.URL.String(), err)
			}
			return readResponse(c, resp, elapsed)
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		c.debug.Printf("request failed, will retry: %s", lastErr)

		delay := c.retry.backoffFor(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
}

func readResponse(c *Client, resp *http.Response, elapsed time.Duration) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if c.logBodies {
		logging.Response(c.logs, resp.StatusCode, elapsed, resp.Header, body)
	} else {
		c.logs.Debugw("received response", "status", resp.StatusCode, "elapsed", elapsed)
	}
	c.debug.Printf("response status %d in %s", resp.StatusCode, elapsed)
	if c.logBodies && len(body) > 0 {
		c.debug.Printf("response body: %s", logging.Truncate(string(body)))
	}
	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     body,
		Duration: elapsed,
	}, nil
}
