// Package sentry provides a minimal client for the Sentry issues API.
package sentry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the hosted Sentry API root.
	DefaultAPIEndpoint = "https://sentry.io/api/0"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPages bounds cursor pagination so a misbehaving Link header
	// cannot loop forever.
	MaxPages = 100
)

// Client provides methods to interact with the Sentry REST API.
type Client struct {
	Token        string       // Sentry auth token, sent as a bearer credential
	Organization string       // Organization slug
	Project      string       // Project slug
	Query        string       // Optional issue search query (e.g. "is:unresolved")
	BaseURL      string       // API root, defaults to DefaultAPIEndpoint
	HTTPClient   *http.Client // Optional custom HTTP client
}

// Issue is one grouped error as returned by the project issues endpoint.
type Issue struct {
	ID        string    `json:"id"`
	ShortID   string    `json:"shortId"`
	Title     string    `json:"title"`
	Culprit   string    `json:"culprit"`
	Level     string    `json:"level"`
	Status    string    `json:"status"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	Count     Count     `json:"count"`
	UserCount int       `json:"userCount"`
	Permalink string    `json:"permalink"`
}

// UnmarshalJSON decodes an issue, accepting the id as a JSON string or number.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	aux := struct {
		*plain
		ID flexID `json:"id"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.ID = string(aux.ID)
	return nil
}

// flexID is an opaque identifier that may arrive quoted or as a bare number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*f = flexID(n.String())
	return nil
}

// Count is an event counter. Sentry serializes it as a JSON string
// ("count": "42") but numbers are accepted as well.
type Count int64

// UnmarshalJSON accepts both "42" and 42.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*c = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", s, err)
		}
		*c = Count(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid count %s: %w", data, err)
	}
	*c = Count(n)
	return nil
}

// MarshalJSON writes the count in Sentry's string form.
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(c), 10))
}
