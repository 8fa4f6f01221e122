// Package e2e runs the Gherkin features in features/ against a running
// longtrees server.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the state one scenario builds up:
// the last response and the identifiers remembered under aliases.
type TestContext struct {
	baseURL string
	client  *http.Client

	status int
	body   []byte
	ids    map[string]string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		ids:     map[string]string{},
	}
}

// Reset clears the per-scenario state.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
	tc.ids = map[string]string{}
}

// Do sends a request. path may reference remembered ids as {alias}; a
// non-nil body is sent as JSON.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, nil)
}

func (tc *TestContext) Status() int { return tc.status }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc map[string]any
	if err := json.Unmarshal(tc.body, &doc); err != nil {
		return nil, fmt.Errorf("response is not a JSON object (status %d): %s", tc.status, tc.body)
	}
	v, ok := doc[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.body)
	}
	return v, nil
}

// Remember stores the "id" of the last response under alias.
func (tc *TestContext) Remember(alias string) error {
	v, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	id, ok := v.(string)
	if !ok {
		return fmt.Errorf("id is %T, not a string", v)
	}
	tc.ids[alias] = id
	return nil
}

// ID returns the identifier remembered under alias.
func (tc *TestContext) ID(alias string) (string, error) {
	id, ok := tc.ids[alias]
	if !ok {
		return "", fmt.Errorf("no identifier remembered as %q", alias)
	}
	return id, nil
}

// Expand replaces {alias} placeholders with remembered identifiers.
func (tc *TestContext) Expand(s string) string {
	for alias, id := range tc.ids {
		s = strings.ReplaceAll(s, "{"+alias+"}", id)
	}
	return s
}
