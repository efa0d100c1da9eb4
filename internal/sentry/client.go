package sentry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/steveyegge/sentrylab/internal/remote"
)

const serviceName = "sentry"

// maxResponseSize caps how much of a single page is read.
const maxResponseSize = 50 * 1024 * 1024

// NewClient creates a new Sentry client for one organization/project pair.
func NewClient(token, organization, project string) *Client {
	return &Client{
		Token:        token,
		Organization: organization,
		Project:      project,
		BaseURL:      DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a new client with a custom API root (self-hosted Sentry or tests).
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &cp
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	cp := *c
	cp.HTTPClient = httpClient
	return &cp
}

// WithQuery returns a new client that filters issues with the given search query.
func (c *Client) WithQuery(query string) *Client {
	cp := *c
	cp.Query = query
	return &cp
}

// issuesURL returns the first-page URL of the project issues endpoint.
func (c *Client) issuesURL() string {
	u := c.BaseURL + "/projects/" + url.PathEscape(c.Organization) + "/" + url.PathEscape(c.Project) + "/issues/"
	if c.Query != "" {
		u += "?" + url.Values{"query": []string{c.Query}}.Encode()
	}
	return u
}

// doGet performs an authenticated GET and returns the body and response headers.
func (c *Client) doGet(ctx context.Context, urlStr string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, &remote.TransportError{Service: serviceName, Op: http.MethodGet, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, &remote.TransportError{Service: serviceName, Op: http.MethodGet, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &remote.APIError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: errorDetail(body, resp.Status),
		}
	}

	return body, resp.Header, nil
}

// errorDetail pulls the "detail" field out of a Sentry error body.
func errorDetail(body []byte, fallback string) string {
	var eb struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}

// nextPage parses a Sentry Link header and returns the next page URL when
// Sentry reports that it has results. Sentry always sends a rel="next" link;
// results="false" marks the end of the list.
func nextPage(headers http.Header) (string, bool) {
	link := headers.Get("Link")
	if link == "" {
		return "", false
	}
	for _, part := range strings.Split(link, ",") {
		part = strings.TrimSpace(part)
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start != 0 || end < 0 {
			continue
		}
		target := part[start+1 : end]
		attrs := part[end+1:]
		if !strings.Contains(attrs, `rel="next"`) {
			continue
		}
		if !strings.Contains(attrs, `results="true"`) {
			return "", false
		}
		return target, true
	}
	return "", false
}

// FetchIssues retrieves the project's current issue list, following cursor
// pagination until Sentry reports no further results.
func (c *Client) FetchIssues(ctx context.Context) ([]Issue, error) {
	var all []Issue
	urlStr := c.issuesURL()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, headers, err := c.doGet(ctx, urlStr)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch issues: %w", err)
		}

		var issues []Issue
		if err := json.Unmarshal(body, &issues); err != nil {
			return nil, fmt.Errorf("failed to parse issues response: %w", err)
		}
		all = append(all, issues...)

		next, ok := nextPage(headers)
		if !ok {
			break
		}
		if page >= MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
		urlStr = next
	}

	return all, nil
}
