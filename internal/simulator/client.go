// Package simulator adapts the service to the remote decision simulation
// engine. The engine itself is an external collaborator; this package only
// forwards requests and shapes failures.
package simulator

import (
	"context"
	"encoding/json"
	"time"

	appErr "github.com/loocor/rules-editor/pkg/errors"
	"resty.dev/v3"
)

// Runner executes a decision graph against an input context and returns the
// raw simulation result.
type Runner interface {
	Run(ctx context.Context, content, input json.RawMessage) (json.RawMessage, error)
}

// Client talks to the remote simulation engine over HTTP.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

var _ Runner = (*Client)(nil)

// Run posts the graph and input context to the engine. The response body
// passes through unchanged as the result. There is no retry and no in-flight
// de-duplication; cancellation is whatever the caller's context provides.
func (c *Client) Run(ctx context.Context, content, input json.RawMessage) (json.RawMessage, error) {
	if input == nil {
		input = json.RawMessage(`{}`)
	}
	body := map[string]json.RawMessage{
		"context": input,
		"content": content,
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/simulate")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "simulation request failed")
	}
	if res.IsError() {
		return nil, shapeError(res.Bytes())
	}
	return json.RawMessage(res.Bytes()), nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

// shapeError derives the surfaced message from the engine's `source` field
// when present, falling back to a generic failure message. The raw body rides
// along as metadata.
func shapeError(body []byte) error {
	msg := "simulation failed"
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Source != "" {
		msg = probe.Source
	}
	e := appErr.New(appErr.CodeUnavailable, msg)
	if len(body) > 0 {
		e = e.WithMeta("data", json.RawMessage(append([]byte(nil), body...)))
	}
	return e
}
