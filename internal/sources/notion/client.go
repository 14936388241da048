package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/utils"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	// DefaultRPS is the documented average request rate per integration.
	DefaultRPS = 3.0
)

// ErrNotFound is returned when a page does not exist or is not shared with
// the integration.
var ErrNotFound = errors.New("notion: page not found")

// APIError is a non-2xx response.
type APIError struct {
	Status     int
	Code       string
	Message    string
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion: unexpected status %d", e.Status)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// RetryAfter is the server-requested delay, zero when none was sent.
func (e *APIError) RetryAfter() time.Duration { return e.retryAfter }

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string        // default DefaultBaseURL
	Version    string        // Notion-Version header, default DefaultVersion
	Token      string        // integration secret
	DatabaseID string        // opportunities database
	RPS        float64       // client-side rate limit, default DefaultRPS
	Lookahead  time.Duration // when > 0, only query deadlines within now+Lookahead or empty
	Names      PropertyNames // property names used in query filters, default DefaultPropertyNames
	HTTPClient *http.Client
}

// Client talks to the Notion REST API. Every request waits on a shared
// rate limiter and performs exactly one attempt; retry policy belongs to
// the caller.
type Client struct {
	http       *http.Client
	baseURL    string
	version    string
	token      string
	databaseID string
	lookahead  time.Duration
	names      PropertyNames
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewClient creates a client.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.RPS <= 0 {
		opts.RPS = DefaultRPS
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Names.Publish == "" {
		opts.Names = DefaultPropertyNames()
	}
	return &Client{
		http:       opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		version:    opts.Version,
		token:      opts.Token,
		databaseID: opts.DatabaseID,
		lookahead:  opts.Lookahead,
		names:      opts.Names,
		limiter:    rate.NewLimiter(rate.Limit(opts.RPS), 1),
		now:        time.Now,
	}
}

// FetchPage queries one page of published rows.
func (c *Client) FetchPage(ctx context.Context, cursor string, pageSize int) (domain.RecordPage, error) {
	body := map[string]any{
		"page_size": pageSize,
		"filter":    c.filter(),
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+c.databaseID+"/query", body, &resp); err != nil {
		return domain.RecordPage{}, err
	}

	out := domain.RecordPage{
		Records: make([]domain.RawRecord, 0, len(resp.Results)),
		HasMore: resp.HasMore,
	}
	if resp.NextCursor != nil {
		out.NextCursor = *resp.NextCursor
	}
	for _, p := range resp.Results {
		if p.Archived {
			continue
		}
		out.Records = append(out.Records, p.toRaw())
	}
	return out, nil
}

// GetRecord fetches a single row by page ID.
func (c *Client) GetRecord(ctx context.Context, id string) (domain.RawRecord, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+id, nil, &p); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return domain.RawRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return domain.RawRecord{}, err
	}
	return p.toRaw(), nil
}

// filter restricts the query to published rows and, when a lookahead is
// configured, to deadlines in [today, today+lookahead] or without a date.
func (c *Client) filter() map[string]any {
	published := map[string]any{
		"property": c.names.Publish,
		"checkbox": map[string]any{"equals": true},
	}
	if c.lookahead <= 0 {
		return published
	}

	now := c.now()
	return map[string]any{
		"and": []any{
			published,
			map[string]any{
				"or": []any{
					map[string]any{
						"property": c.names.ClosingDate,
						"date": map[string]any{
							"on_or_after":  now.Format(domain.DateLayout),
							"on_or_before": now.Add(c.lookahead).Format(domain.DateLayout),
						},
					},
					map[string]any{
						"property": c.names.ClosingDate,
						"date":     map[string]any{"is_empty": true},
					},
				},
			},
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer utils.Close(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		var eb apiErrorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (p page) toRaw() domain.RawRecord {
	return domain.RawRecord{
		ID:          p.ID,
		CreatedTime: p.CreatedTime,
		Properties:  p.Properties,
	}
}

// parseRetryAfter reads a delay in seconds; anything else is ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
