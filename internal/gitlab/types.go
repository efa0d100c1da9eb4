// Package gitlab provides client and data types for the GitLab REST API.
//
// Only the slice of the issues API that the bridge needs is covered: creating
// issues for mirrored Sentry errors, reading a single issue back, and moving
// issues between states for bulk clean-up.
package gitlab

import (
	"net/http"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitLab API v4 endpoint suffix.
	DefaultAPIEndpoint = "/api/v4"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// State events accepted by the issue edit endpoint.
const (
	StateEventClose  = "close"
	StateEventReopen = "reopen"
)

// Client provides methods to interact with the GitLab REST API.
type Client struct {
	Token      string       // GitLab personal access token, sent as PRIVATE-TOKEN
	BaseURL    string       // GitLab instance URL, with or without the /api/v4 suffix
	ProjectID  string       // Project ID or path (e.g., "group/project")
	HTTPClient *http.Client // Optional custom HTTP client
}

// Issue represents an issue from the GitLab API.
type Issue struct {
	ID          int        `json:"id"`  // Global issue ID
	IID         int        `json:"iid"` // Project-scoped issue ID
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	State       string     `json:"state"` // "opened", "closed"
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Labels      []string   `json:"labels"`
	WebURL      string     `json:"web_url"`
}

// IsClosed reports whether GitLab considers the issue closed.
func (i *Issue) IsClosed() bool {
	return i.State == "closed"
}

// errorBody is the shape GitLab uses for error responses. message is a string
// for most endpoints and an object of field errors for validation failures.
type errorBody struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
}
