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

	"github.com/terra-clan/certmap/internal/models"
)

// Client is a Go SDK for the certmap API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the admin API key sent as a bearer token
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new certmap client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is the error envelope returned by the server
type APIError struct {
	Status  int             `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Selection is the filter selection of a session
type Selection struct {
	Category    string   `json:"category"`
	SkillLevels []string `json:"skill_levels"`
	SearchText  string   `json:"search_text"`
}

// Session is the state echoed by every session endpoint
type Session struct {
	ID             string                  `json:"id"`
	CatalogVersion int64                   `json:"catalog_version"`
	Summary        string                  `json:"summary"`
	Revision       uint64                  `json:"revision"`
	Selection      Selection               `json:"selection"`
	AppliedSearch  string                  `json:"applied_search"`
	SearchPending  bool                    `json:"search_pending"`
	Records        []*models.Certification `json:"records"`
	Shown          int                     `json:"shown"`
	Total          int                     `json:"total"`
}

// List is a filtered certification listing
type List struct {
	Records []*models.Certification `json:"records"`
	Shown   int                     `json:"shown"`
	Total   int                     `json:"total"`
	Summary string                  `json:"summary"`
}

// Point is one scatter-plot point
type Point struct {
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	Abbreviation string  `json:"abbreviation"`
	CertType     string  `json:"cert_type"`
	SkillLevel   string  `json:"skill_level"`
	TotalVotes   int     `json:"total_votes"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Catalog describes the loaded catalog
type Catalog struct {
	Version  int64     `json:"version"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Stats    struct {
		Total        int            `json:"total"`
		ByCertType   map[string]int `json:"by_cert_type"`
		BySkillLevel map[string]int `json:"by_skill_level"`
	} `json:"stats"`
}

// ListOptions filters a stateless certification listing
type ListOptions struct {
	Category string
	Levels   []string
	Search   string
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	for _, l := range o.Levels {
		q.Add("level", l)
	}
	if o.Search != "" {
		q.Set("q", o.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// GetCatalog returns catalog metadata and statistics
func (c *Client) GetCatalog(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCertifications filters the catalog without a session
func (c *Client) ListCertifications(ctx context.Context, opts ListOptions) (*List, error) {
	var out List
	if err := c.call(ctx, http.MethodGet, "/api/v1/certifications"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCertification retrieves a certification by slug
func (c *Client) GetCertification(ctx context.Context, slug string) (*models.Certification, error) {
	var out models.Certification
	if err := c.call(ctx, http.MethodGet, "/api/v1/certifications/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks one candidate record on the server
func (c *Client) Validate(ctx context.Context, candidate any) (*models.Certification, error) {
	var out struct {
		Record *models.Certification `json:"record"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/certifications/validate", candidate, &out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

// CreateSession starts a filter session
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	return c.session(ctx, http.MethodPost, "/api/v1/sessions", nil)
}

// GetSession returns the current state of a session
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	return c.session(ctx, http.MethodGet, sessionPath(id, ""), nil)
}

// DeleteSession ends a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// SetCategory selects "all" or one certification type
func (c *Client) SetCategory(ctx context.Context, id, category string) (*Session, error) {
	return c.session(ctx, http.MethodPut, sessionPath(id, "/category"), map[string]string{"category": category})
}

// ToggleSkillLevel adds or removes a skill level from the selection
func (c *Client) ToggleSkillLevel(ctx context.Context, id, level string) (*Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(id, "/levels/"+url.PathEscape(level)+"/toggle"), nil)
}

// ClearSkillLevels empties the skill level selection
func (c *Client) ClearSkillLevels(ctx context.Context, id string) (*Session, error) {
	return c.session(ctx, http.MethodDelete, sessionPath(id, "/levels"), nil)
}

// SetSearch updates the search text. The filtered result follows after the debounce.
func (c *Client) SetSearch(ctx context.Context, id, text string) (*Session, error) {
	return c.session(ctx, http.MethodPut, sessionPath(id, "/search"), map[string]string{"text": text})
}

// FlushSearch applies a pending search immediately
func (c *Client) FlushSearch(ctx context.Context, id string) (*Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(id, "/search/flush"), nil)
}

// Clear resets the session to its default selection
func (c *Client) Clear(ctx context.Context, id string) (*Session, error) {
	return c.session(ctx, http.MethodPost, sessionPath(id, "/clear"), nil)
}

// Filtered returns the session's current filtered records
func (c *Client) Filtered(ctx context.Context, id string) (*List, error) {
	var out List
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/filtered"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Points returns the scatter-plot points of the session's filtered records
func (c *Client) Points(ctx context.Context, id string) ([]Point, error) {
	var out []Point
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/points"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reload asks the server to reload its catalog source. Requires an API key.
func (c *Client) Reload(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func sessionPath(id, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) session(ctx context.Context, method, path string, body any) (*Session, error) {
	var out Session
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error == nil {
			result.Error = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		result.Error.Status = status
		return result.Error
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
