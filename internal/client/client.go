// Package client is the client side data layer: one function per server
// operation, each sending the caller's owner key.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

const (
	defaultTimeout = 15 * time.Second
	expensesPath   = "/expenses"
	summaryPath    = "/expenses/summary"
	sessionPath    = "/session"
)

// Client talks to the bilancio API. It never retries or caches.
type Client struct {
	httpClient *http.Client
	baseURL    string
	resolver   identity.Resolver
	header     string
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithIdentityHeader sets the header carrying the owner key.
func WithIdentityHeader(name string) Option {
	return func(c *Client) { c.header = name }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API at baseURL.
func New(baseURL string, resolver identity.Resolver, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(u.String(), "/"),
		resolver:   resolver,
		header:     identity.DefaultHeader,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentClient)
	return c, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Is maps status codes back to the core error taxonomy.
func (e *APIError) Is(target error) bool {
	switch target {
	case core.ErrMissingIdentity:
		return e.StatusCode == http.StatusBadRequest && e.Message == core.ErrMissingIdentity.Error()
	case core.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case core.ErrValidation:
		return e.StatusCode == http.StatusUnprocessableEntity
	case core.ErrStore:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// List returns the caller's transactions, most recent first.
func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := c.do(ctx, http.MethodGet, expensesPath, true, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Create stores a new transaction and returns it as persisted.
func (c *Client) Create(ctx context.Context, d core.Draft) (core.Transaction, error) {
	var t core.Transaction
	err := c.do(ctx, http.MethodPost, expensesPath, true, d, &t)
	return t, err
}

// Update replaces the transaction identified by id.
func (c *Client) Update(ctx context.Context, id string, d core.Draft) (core.Transaction, error) {
	var t core.Transaction
	err := c.do(ctx, http.MethodPut, expensesPath+"/"+url.PathEscape(id), true, d, &t)
	return t, err
}

// Delete removes the transaction identified by id. Missing ids are not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, expensesPath+"/"+url.PathEscape(id), true, nil, nil)
}

// Summary fetches the month dashboard computed by the server.
func (c *Client) Summary(ctx context.Context, q services.MonthQuery) (core.MonthView, error) {
	params := url.Values{}
	if q.Year != 0 {
		params.Set("year", strconv.Itoa(q.Year))
	}
	if q.Month != 0 {
		params.Set("month", strconv.Itoa(int(q.Month)))
	}
	if q.View != "" {
		params.Set("view", string(q.View))
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	path := summaryPath
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var v core.MonthView
	err := c.do(ctx, http.MethodGet, path, true, nil, &v)
	return v, err
}

// NewSession asks the server for a fresh session id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.do(ctx, http.MethodGet, sessionPath, false, nil, &body); err != nil {
		return "", err
	}
	if body.SessionID == "" {
		return "", errors.New("server returned an empty session id")
	}
	return body.SessionID, nil
}

func (c *Client) do(ctx context.Context, method, path string, withOwner bool, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withOwner {
		if c.resolver == nil {
			return core.ErrMissingIdentity
		}
		owner, err := c.resolver.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("resolve owner key: %w", err)
		}
		req.Header.Set(c.header, owner.String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil {
			apiErr.Message = errResp.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
