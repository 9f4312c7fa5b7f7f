// Package hydra is a small client for Hydra/JSON-LD collection APIs such as
// the ones produced by API Platform.
package hydra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// MediaType is the content type spoken on both directions.
const MediaType = "application/ld+json"

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1 << 20
)

// Collection is one page of a hydra:Collection.
type Collection[T any] struct {
	Member     []T   `json:"hydra:member"`
	TotalItems int64 `json:"hydra:totalItems"`
}

// Client performs CRUD requests against named collection endpoints below a base URL.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	logger    *slog.Logger
	requestID func(context.Context) string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestID forwards the id returned by fn as X-Request-ID on every call.
func WithRequestID(fn func(context.Context) string) Option {
	return func(c *Client) {
		c.requestID = fn
	}
}

// NewClient creates a Client for the API rooted at baseURL, e.g. "http://localhost:8080/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: host is required", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindAll fetches one page of resource, ordered server-side by order, and
// decodes the collection into out.
func (c *Client) FindAll(ctx context.Context, resource string, page, perPage int, order domain.SortSpec, out any) error {
	u := c.endpoint(resource, "")
	u.RawQuery = collectionQuery(page, perPage, order)
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// FindOne fetches a single member of resource.
func (c *Client) FindOne(ctx context.Context, resource, id string, out any) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("hydra: empty id")
	}
	return c.do(ctx, http.MethodGet, c.endpoint(resource, id), nil, out)
}

// Post creates a member of resource from body and decodes the created member into out.
func (c *Client) Post(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.endpoint(resource, ""), body, out)
}

// Put replaces the member id of resource with body.
func (c *Client) Put(ctx context.Context, resource, id string, body, out any) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("hydra: empty id")
	}
	return c.do(ctx, http.MethodPut, c.endpoint(resource, id), body, out)
}

// Delete removes the member id of resource.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("hydra: empty id")
	}
	return c.do(ctx, http.MethodDelete, c.endpoint(resource, id), nil, nil)
}

func (c *Client) endpoint(resource, id string) *url.URL {
	elems := []string{strings.Trim(resource, "/")}
	if id != "" {
		elems = append(elems, id)
	}
	return c.baseURL.JoinPath(elems...)
}

// collectionQuery builds page, itemsPerPage and order[field] parameters.
// url.Values would sort the keys, which loses the precedence of the order entries.
func collectionQuery(page, perPage int, order domain.SortSpec) string {
	var b strings.Builder
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if page > 0 {
		add("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		add("itemsPerPage", strconv.Itoa(perPage))
	}
	for _, f := range order {
		add("order["+f.Field+"]", string(f.Direction))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hydra: encode %s %s: %w", method, u.Path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("hydra: build %s %s: %w", method, u.Path, err)
	}
	req.Header.Set("Accept", MediaType)
	if body != nil {
		req.Header.Set("Content-Type", MediaType)
	}
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hydra: %s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "hydra request",
		slog.String("method", method),
		slog.String("url", u.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hydra: decode %s %s: %w", method, u.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	apiErr.Description = body.description()
	apiErr.Violations = body.Violations
	return apiErr
}
