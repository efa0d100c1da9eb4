package gitlab

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/steveyegge/sentrylab/internal/remote"
)

const serviceName = "gitlab"

// NewClient creates a new GitLab client.
func NewClient(token, baseURL, projectID string) *Client {
	return &Client{
		Token:     token,
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		ProjectID: projectID,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		Token:      c.Token,
		BaseURL:    c.BaseURL,
		ProjectID:  c.ProjectID,
		HTTPClient: httpClient,
	}
}

// WithEndpoint returns a new client with a custom API endpoint.
func (c *Client) WithEndpoint(endpoint string) *Client {
	return &Client{
		Token:      c.Token,
		BaseURL:    strings.TrimSuffix(endpoint, "/"),
		ProjectID:  c.ProjectID,
		HTTPClient: c.HTTPClient,
	}
}

// WithInsecureTLS returns a new client that skips certificate verification.
// Self-hosted GitLab instances on internal networks often use self-signed certs.
func (c *Client) WithInsecureTLS() *Client {
	timeout := DefaultTimeout
	if c.HTTPClient != nil && c.HTTPClient.Timeout > 0 {
		timeout = c.HTTPClient.Timeout
	}
	return c.WithHTTPClient(&http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- opt-in via gitlab.insecure_skip_verify
		},
	})
}

// projectPath returns the URL-encoded project ID for use in API paths.
func (c *Client) projectPath() string {
	return url.PathEscape(c.ProjectID)
}

// apiRoot returns the base URL with the /api/v4 suffix applied exactly once.
func (c *Client) apiRoot() string {
	if strings.HasSuffix(c.BaseURL, DefaultAPIEndpoint) {
		return c.BaseURL
	}
	return c.BaseURL + DefaultAPIEndpoint
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.apiRoot() + path

	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}

	return u
}

// issuePath returns the API path of a single project issue.
func (c *Client) issuePath(iid int) string {
	return "/projects/" + c.projectPath() + "/issues/" + strconv.Itoa(iid)
}

// doRequest performs an authenticated HTTP request and returns the response body.
// Non-2xx responses become *remote.APIError; failures to reach GitLab become
// *remote.TransportError. Requests are not retried.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &remote.TransportError{Service: serviceName, Op: method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &remote.TransportError{Service: serviceName, Op: method, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &remote.APIError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, resp.Status),
		}
	}

	return respBody, nil
}

// errorMessage extracts a human-readable message from a GitLab error body.
func errorMessage(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch m := eb.Message.(type) {
		case string:
			if m != "" {
				return m
			}
		case nil:
		default:
			if b, err := json.Marshal(m); err == nil {
				return string(b)
			}
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}

// CreateIssue creates a new issue in the configured project.
func (c *Client) CreateIssue(ctx context.Context, title, description string, labels []string) (*Issue, error) {
	reqBody := map[string]any{
		"title":       title,
		"description": description,
	}
	if len(labels) > 0 {
		// GitLab accepts labels as a comma-separated string.
		reqBody["labels"] = strings.Join(labels, ",")
	}

	urlStr := c.buildURL("/projects/"+c.projectPath()+"/issues", nil)
	respBody, err := c.doRequest(ctx, http.MethodPost, urlStr, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	var issue Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}

	return &issue, nil
}

// UpdateIssue updates an existing issue in GitLab.
func (c *Client) UpdateIssue(ctx context.Context, iid int, updates map[string]any) (*Issue, error) {
	urlStr := c.buildURL(c.issuePath(iid), nil)
	respBody, err := c.doRequest(ctx, http.MethodPut, urlStr, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update issue #%d: %w", iid, err)
	}

	var issue Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse update response: %w", err)
	}

	return &issue, nil
}

// CloseIssue moves the issue with the given IID to the closed state.
// Closing an already-closed issue is accepted by GitLab and returns the issue unchanged.
func (c *Client) CloseIssue(ctx context.Context, iid int) (*Issue, error) {
	return c.UpdateIssue(ctx, iid, map[string]any{"state_event": StateEventClose})
}

// FetchIssueByIID retrieves a single issue by its project-scoped IID.
func (c *Client) FetchIssueByIID(ctx context.Context, iid int) (*Issue, error) {
	urlStr := c.buildURL(c.issuePath(iid), nil)
	respBody, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue #%d: %w", iid, err)
	}

	var issue Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse issue response: %w", err)
	}

	return &issue, nil
}
