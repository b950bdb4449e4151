// Package api is the REST client for the backend consumed by the entity
// engine. All endpoints speak JSON; successful and failed outcomes may
// arrive wrapped in a {success, data, error} envelope, and list
// responses come in several historical shapes (bare array, {data:[...]},
// {content:[...]}). This package normalizes all of that so callers only
// see records and errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/session"
)

// genericErrorMessage is shown when the backend rejects a request
// without supplying its own message.
const genericErrorMessage = "Something went wrong. Please try again."

// Error is a backend-reported failure: either success=false in the
// envelope or a non-2xx status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return "api: " + e.Message
}

// Client issues authenticated JSON requests against one backend base URL.
type Client struct {
	base string
	http *http.Client
	sess *session.Context
	log  *zap.Logger
}

// NewClient creates a Client. The session context supplies the bearer
// token and logger; a nil http client gets a 15s-timeout default.
func NewClient(base string, sess *session.Context, hc *http.Client) *Client {
	if sess == nil {
		sess = session.New(nil, nil, nil)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: hc,
		sess: sess,
		log:  sess.Logger.Named("api"),
	}
}

// Get issues a GET and returns the unwrapped response body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body and returns the unwrapped response.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body and returns the unwrapped response.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	url := c.base + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.sess.BearerToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	data, apiErr := unwrapEnvelope(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := genericErrorMessage
		if apiErr != nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// unwrapEnvelope peels the {success, data, error} wrapper when present.
// Bodies without a boolean "success" key pass through untouched, so
// endpoints that return the payload directly keep working.
func unwrapEnvelope(raw []byte) (json.RawMessage, *Error) {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		return raw, nil
	}
	if !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = genericErrorMessage
		}
		return nil, &Error{Message: msg}
	}
	return env.Data, nil
}
