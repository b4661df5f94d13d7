// Package kgclient is a typed HTTP client for the knowledge-graph backend.
package kgclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/debug"
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
)

// DefaultBaseURL matches the backend's default listen address.
const DefaultBaseURL = "http://127.0.0.1:5000"

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client talks to one backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.base.String() }

// Query fetches the subgraph for a search term.
func (c *Client) Query(ctx context.Context, term string) (kgapi.Subgraph, error) {
	defer metrics.Timer(metrics.QueryFetch)()
	var sg kgapi.Subgraph
	err := c.get(ctx, kgapi.PathQuery, url.Values{"q": {term}}, &sg)
	return sg, err
}

// Details fetches the expansion data for one entity.
func (c *Client) Details(ctx context.Context, entityID string) (kgapi.Details, error) {
	defer metrics.Timer(metrics.DetailsFetch)()
	var d kgapi.Details
	err := c.get(ctx, kgapi.PathDetails, url.Values{"name": {entityID}}, &d)
	return d, err
}

// Autocomplete returns name suggestions for a prefix.
func (c *Client) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	defer metrics.Timer(metrics.SuggestFetch)()
	var names []string
	err := c.get(ctx, kgapi.PathAutocomplete, url.Values{"q": {prefix}}, &names)
	return names, err
}

// Taxonomy returns the family/genus/plant table.
func (c *Client) Taxonomy(ctx context.Context) ([]kgapi.TaxonomyEntry, error) {
	defer metrics.Timer(metrics.TaxonomyFetch)()
	var entries []kgapi.TaxonomyEntry
	err := c.get(ctx, kgapi.PathTaxonomy, nil, &entries)
	return entries, err
}

// StructuredInfo returns the attribute card for a plant.
func (c *Client) StructuredInfo(ctx context.Context, name string) (kgapi.PlantInfo, error) {
	defer metrics.Timer(metrics.InfoFetch)()
	var si kgapi.StructuredInfo
	if err := c.get(ctx, kgapi.PathStructuredInfo, url.Values{"name": {name}}, &si); err != nil {
		return nil, err
	}
	if si.Info == nil {
		si.Info = kgapi.PlantInfo{}
	}
	return si.Info, nil
}

// Generate asks the backend to write descriptive text for a plant.
func (c *Client) Generate(ctx context.Context, req kgapi.GenerateRequest) (string, error) {
	defer metrics.Timer(metrics.GenerateFetch)()
	var text string
	err := c.post(ctx, kgapi.PathGenerate, req, &text)
	return text, err
}

// ScriptSuggestions asks the backend for short-video script ideas.
func (c *Client) ScriptSuggestions(ctx context.Context, req kgapi.ScriptRequest) (kgapi.ScriptResponse, error) {
	defer metrics.Timer(metrics.ScriptFetch)()
	var resp kgapi.ScriptResponse
	err := c.post(ctx, kgapi.PathScriptSuggestions, req, &resp)
	return resp, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.endpoint(path, q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	if c.timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	debug.Log("kgclient: %s %s", req.Method, req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.FailedFetches.Inc()
		return &NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.FailedFetches.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &NetworkError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.FailedFetches.Inc()
		return &NetworkError{Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
