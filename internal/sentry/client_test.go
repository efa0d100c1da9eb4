package sentry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/steveyegge/sentrylab/internal/remote"
)

const issuesJSON = `[
	{
		"id": "4512",
		"shortId": "WEB-1A",
		"title": "TypeError: Cannot read properties of undefined",
		"culprit": "app/checkout.js",
		"level": "error",
		"status": "unresolved",
		"firstSeen": "2024-03-01T08:15:30.123Z",
		"lastSeen": "2024-03-02T17:45:00Z",
		"count": "128",
		"userCount": 37,
		"permalink": "https://acme.sentry.io/issues/4512/"
	}
]`

func TestIssueJSONUnmarshal(t *testing.T) {
	var issues []Issue
	if err := json.Unmarshal([]byte(issuesJSON), &issues); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	is := issues[0]
	if is.ID != "4512" {
		t.Errorf("ID = %q, want 4512", is.ID)
	}
	if is.Count != 128 {
		t.Errorf("Count = %d, want 128", is.Count)
	}
	if is.UserCount != 37 {
		t.Errorf("UserCount = %d, want 37", is.UserCount)
	}
	want := time.Date(2024, 3, 2, 17, 45, 0, 0, time.UTC)
	if !is.LastSeen.Equal(want) {
		t.Errorf("LastSeen = %v, want %v", is.LastSeen, want)
	}
}

func TestIssueJSONUnmarshal_NumericID(t *testing.T) {
	data := `[
		{"id": 123, "title": "numeric", "count": 4, "lastSeen": "2024-03-02T17:45:00Z"},
		{"id": "abc", "title": "string", "count": "5"},
		{"id": null, "title": "missing"}
	]`
	var issues []Issue
	if err := json.Unmarshal([]byte(data), &issues); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3", len(issues))
	}
	if issues[0].ID != "123" || issues[0].Title != "numeric" || issues[0].Count != 4 {
		t.Errorf("issues[0] = %+v, want id 123", issues[0])
	}
	if issues[0].LastSeen.IsZero() {
		t.Error("issues[0].LastSeen not decoded")
	}
	if issues[1].ID != "abc" || issues[1].Count != 5 {
		t.Errorf("issues[1] = %+v, want id abc", issues[1])
	}
	if issues[2].ID != "" {
		t.Errorf("issues[2].ID = %q, want empty", issues[2].ID)
	}

	var bad Issue
	if err := json.Unmarshal([]byte(`{"id": true}`), &bad); err == nil {
		t.Error("Unmarshal of a boolean id returned nil error")
	}
}

func TestCountUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Count
		wantErr bool
	}{
		{`"42"`, 42, false},
		{`42`, 42, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c Count
			err := json.Unmarshal([]byte(tt.in), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, c, tt.want)
			}
		})
	}
}

func TestFetchIssues_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sntrys_token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer sntrys_token")
		}
		if r.URL.Path != "/projects/acme/web/issues/" {
			t.Errorf("URL path = %s, want /projects/acme/web/issues/", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(issuesJSON))
	}))
	defer server.Close()

	client := NewClient("sntrys_token", "acme", "web").WithBaseURL(server.URL)
	issues, err := client.FetchIssues(context.Background())
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Permalink != "https://acme.sentry.io/issues/4512/" {
		t.Errorf("FetchIssues() = %+v", issues)
	}
}

func TestFetchIssues_Query(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient("t", "acme", "web").WithBaseURL(server.URL).WithQuery("is:unresolved level:error")
	if _, err := client.FetchIssues(context.Background()); err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if gotQuery != "is:unresolved level:error" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestFetchIssues_Pagination(t *testing.T) {
	var serverURL string
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		cursor := r.URL.Query().Get("cursor")
		w.Header().Set("Content-Type", "application/json")
		switch cursor {
		case "":
			w.Header().Set("Link", fmt.Sprintf(
				`<%[1]s/projects/acme/web/issues/?cursor=0:0:1>; rel="previous"; results="false"; cursor="0:0:1", `+
					`<%[1]s/projects/acme/web/issues/?cursor=0:100:0>; rel="next"; results="true"; cursor="0:100:0"`, serverURL))
			_, _ = w.Write([]byte(`[{"id":"1","count":"1"}]`))
		case "0:100:0":
			w.Header().Set("Link", fmt.Sprintf(
				`<%[1]s/projects/acme/web/issues/?cursor=0:0:1>; rel="previous"; results="true"; cursor="0:0:1", `+
					`<%[1]s/projects/acme/web/issues/?cursor=0:200:0>; rel="next"; results="false"; cursor="0:200:0"`, serverURL))
			_, _ = w.Write([]byte(`[{"id":"2","count":"5"}]`))
		default:
			t.Errorf("unexpected cursor %q", cursor)
			_, _ = w.Write([]byte("[]"))
		}
	}))
	defer server.Close()
	serverURL = server.URL

	issues, err := NewClient("t", "acme", "web").WithBaseURL(server.URL).FetchIssues(context.Background())
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(issues) != 2 || issues[0].ID != "1" || issues[1].ID != "2" {
		t.Errorf("issues = %+v, want ids [1 2] in order", issues)
	}
}

func TestFetchIssues_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
	}))
	defer server.Close()

	_, err := NewClient("t", "acme", "web").WithBaseURL(server.URL).FetchIssues(context.Background())
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *remote.APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Service != "sentry" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != "You do not have permission to perform this action." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestFetchIssues_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer server.Close()

	if _, err := NewClient("t", "acme", "web").WithBaseURL(server.URL).FetchIssues(context.Background()); err == nil {
		t.Fatal("FetchIssues() error = nil, want parse error")
	}
}

func TestNextPage(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		want   string
		wantOK bool
	}{
		{"empty", "", "", false},
		{
			"has next",
			`<https://sentry.io/a?cursor=1>; rel="previous"; results="false"; cursor="1", <https://sentry.io/a?cursor=2>; rel="next"; results="true"; cursor="2"`,
			"https://sentry.io/a?cursor=2", true,
		},
		{
			"exhausted",
			`<https://sentry.io/a?cursor=1>; rel="previous"; results="true"; cursor="1", <https://sentry.io/a?cursor=2>; rel="next"; results="false"; cursor="2"`,
			"", false,
		},
		{"garbage", `nonsense`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.link != "" {
				h.Set("Link", tt.link)
			}
			got, ok := nextPage(h)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("nextPage() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
