// Package remote talks to the todo HTTP API. The server owns all state;
// this package only translates the four calls and their failures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoclient/internal/model"
)

// Client is the remote store client. Safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

// Option tunes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		base:   u,
		http:   &http.Client{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

// List fetches every todo, in server order.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	body, status, err := c.do(ctx, OpList, http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return nil, err
	}
	if err := validateTodos(body, true); err != nil {
		return nil, &RequestFailed{Op: OpList, StatusCode: status, Err: err}
	}
	items := []model.Todo{}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &RequestFailed{Op: OpList, StatusCode: status, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return items, nil
}

// Create persists a new todo. The server assigns the id; completed is always false.
func (c *Client) Create(ctx context.Context, n model.NewTodo) (model.Todo, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return model.Todo{}, fmt.Errorf("marshal new todo: %w", err)
	}
	body, status, err := c.do(ctx, OpCreate, http.MethodPost, c.collectionURL(), payload)
	if err != nil {
		return model.Todo{}, err
	}
	return decodeTodo(OpCreate, status, body)
}

// Update sends the completed flag of p. Other fields of p are not sent.
func (c *Client) Update(ctx context.Context, id string, p model.Patch) (model.Todo, error) {
	if p.Completed == nil {
		return model.Todo{}, ErrEmptyPatch
	}
	target, err := c.itemURL(OpUpdate, id)
	if err != nil {
		return model.Todo{}, err
	}
	payload, err := json.Marshal(struct {
		Completed bool `json:"completed"`
	}{*p.Completed})
	if err != nil {
		return model.Todo{}, fmt.Errorf("marshal patch: %w", err)
	}
	body, status, err := c.do(ctx, OpUpdate, http.MethodPut, target, payload)
	if err != nil {
		return model.Todo{}, err
	}
	return decodeTodo(OpUpdate, status, body)
}

// Delete removes the todo with the given id. Any 2xx status is success.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	target, err := c.itemURL(OpDelete, id)
	if err != nil {
		return false, err
	}
	if _, _, err := c.do(ctx, OpDelete, http.MethodDelete, target, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) collectionURL() string {
	return c.base.JoinPath("todos").String() + "/"
}

// itemURL rejects ids that path cleaning would turn into another resource.
func (c *Client) itemURL(op Op, id string) (string, error) {
	switch id {
	case "", ".", "..":
		return "", &RequestFailed{Op: op, Err: fmt.Errorf("%w %q", ErrInvalidID, id)}
	}
	return c.base.JoinPath("todos", url.PathEscape(id)).String(), nil
}

// do performs one request and returns the body and status of a 2xx response.
// Bodies of failed responses are drained and dropped.
func (c *Client) do(ctx context.Context, op Op, method, target string, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, 0, &RequestFailed{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "url", target, "err", err)
		return nil, 0, &RequestFailed{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("request", "op", op, "method", method, "url", target, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, &RequestFailed{Op: op, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &RequestFailed{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.StatusCode, nil
}

func decodeTodo(op Op, status int, body []byte) (model.Todo, error) {
	if err := validateTodos(body, false); err != nil {
		return model.Todo{}, &RequestFailed{Op: op, StatusCode: status, Err: err}
	}
	var t model.Todo
	if err := json.Unmarshal(body, &t); err != nil {
		return model.Todo{}, &RequestFailed{Op: op, StatusCode: status, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return t, nil
}
