package gitlab

import (
	"encoding/json"
	"testing"
)

// can be correctly unmarshaled into our Issue type.
func TestIssueJSONUnmarshal(t *testing.T) {
	jsonData := `{
		"id": 123456,
		"iid": 42,
		"project_id": 789,
		"title": "[Sentry] TypeError: x is undefined",
		"description": "## Sentry Issue",
		"state": "closed",
		"created_at": "2024-01-15T10:30:00Z",
		"updated_at": "2024-01-16T14:45:00Z",
		"closed_at": "2024-01-16T14:45:00Z",
		"labels": ["sentry", "bug"],
		"author": {"id": 102, "username": "alice"},
		"web_url": "https://gitlab.example.com/group/project/-/issues/42"
	}`

	var issue Issue
	if err := json.Unmarshal([]byte(jsonData), &issue); err != nil {
		t.Fatalf("Failed to unmarshal issue: %v", err)
	}

	if issue.ID != 123456 {
		t.Errorf("ID = %d, want 123456", issue.ID)
	}
	if issue.IID != 42 {
		t.Errorf("IID = %d, want 42", issue.IID)
	}
	if issue.ProjectID != 789 {
		t.Errorf("ProjectID = %d, want 789", issue.ProjectID)
	}
	if len(issue.Labels) != 2 || issue.Labels[0] != "sentry" {
		t.Errorf("Labels = %v, want [sentry bug]", issue.Labels)
	}
	if issue.CreatedAt == nil || issue.CreatedAt.Year() != 2024 {
		t.Errorf("CreatedAt = %v, want 2024 timestamp", issue.CreatedAt)
	}
	if !issue.IsClosed() {
		t.Error("IsClosed() = false, want true for state=closed")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		fallback string
		want     string
	}{
		{"string message", `{"message":"404 Project Not Found"}`, "404", "404 Project Not Found"},
		{"field errors", `{"message":{"title":["can't be blank"]}}`, "400", `{"title":["can't be blank"]}`},
		{"error key", `{"error":"invalid_token"}`, "401", "invalid_token"},
		{"not json", "Bad Gateway", "502", "Bad Gateway"},
		{"empty", "", "500 Internal Server Error", "500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage([]byte(tt.body), tt.fallback); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
