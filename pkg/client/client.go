// Package client talks to the complaints API: it lists mail groups, posts
// complaints as multipart forms and records review actions. Requests are
// never retried.
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
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/payload"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ErrNetwork wraps transport failures: the request never produced an HTTP
// response.
var ErrNetwork = errors.New("client: network error")

// APIError is a non-2xx response. Body holds the response verbatim.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("client: server returned %d", e.Status)
	}
	return fmt.Sprintf("client: server returned %d: %s", e.Status, body)
}

// Response is a successful reply.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// ReviewAction is the body of a review-action request.
type ReviewAction struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

// Client is an HTTP collaborator for the complaints API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	contract   *contract.Contract
	logger     *zap.Logger
	requestID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithToken sets the bearer token. An empty token sends no Authorization
// header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithContract replaces the embedded API contract.
func WithContract(ct *contract.Contract) Option {
	return func(c *Client) {
		if ct != nil {
			c.contract = ct
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDFunc overrides request id generation.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
		requestID:  uuid.NewString,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.contract == nil {
		ct, err := contract.Default()
		if err != nil {
			return nil, err
		}
		c.contract = ct
	}
	return c, nil
}

// ListMailGroups fetches the notification groups. The endpoint may answer
// with a bare JSON array or an object wrapping it under "data".
func (c *Client) ListMailGroups(ctx context.Context) ([]incident.MailGroup, error) {
	op, err := c.contract.Operation(contract.OpListMailGroups)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, op.Method, op.Path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("client: decode mail groups: %w", err)
	}

	items := extractResults(decoded)
	groups := make([]incident.MailGroup, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		g := incident.MailGroup{
			ID:   pickString(obj, "id"),
			Name: pickString(obj, "name"),
			Key:  pickString(obj, "key"),
		}
		if g.ID == "" {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// CreateComplaint posts the payload as one multipart request.
func (c *Client) CreateComplaint(ctx context.Context, p *payload.Payload) (*Response, error) {
	if p == nil {
		return nil, errors.New("client: nil payload")
	}
	op, err := c.contract.Operation(contract.OpCreateComplaint)
	if err != nil {
		return nil, err
	}
	if err := p.Check(op); err != nil {
		return nil, err
	}
	body, contentType, err := p.Body()
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, op.Method, op.Path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// CreateReviewAction records an action against a complaint.
func (c *Client) CreateReviewAction(ctx context.Context, complaintID string, action ReviewAction) (*Response, error) {
	complaintID = strings.TrimSpace(complaintID)
	if complaintID == "" {
		return nil, errors.New("client: complaint id is required")
	}
	op, err := c.contract.Operation(contract.OpCreateReviewAction)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("client: encode review action: %w", err)
	}

	path := op.Expand(map[string]string{"id": url.PathEscape(complaintID)})
	req, err := c.newRequest(ctx, op.Method, path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: request: %w", err)
	}
	req.Header.Set(RequestIDHeader, c.requestID())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return &Response{Status: resp.StatusCode, Body: body, RequestID: requestID}, nil
}

func extractResults(decoded any) []any {
	switch v := decoded.(type) {
	case []any:
		return v
	case map[string]any:
		if data, ok := v["data"].([]any); ok {
			return data
		}
	}
	return nil
}

func pickString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
