package bridge

import (
	"bytes"
	"text/template"
	"time"

	"github.com/steveyegge/sentrylab/internal/sentry"
)

// TitlePrefix is prepended to every mirrored issue title.
const TitlePrefix = "[Sentry] "

// DefaultLabels are applied to every mirrored issue unless configured otherwise.
var DefaultLabels = []string{"sentry", "bug"}

// displayTimeLayout renders timestamps in the GitLab description.
const displayTimeLayout = "2006-01-02 15:04:05 MST"

var descriptionTmpl = template.Must(template.New("description").Parse(`
## Sentry Issue Details
- **Issue ID:** {{.ID}}
- **First seen:** {{.FirstSeen}}
- **Last seen:** {{.LastSeen}}

## Error Message
` + "```" + `
{{.Title}}
` + "```" + `

## Sentry Link
[View this issue in Sentry]({{.Permalink}})

## Event Statistics
- Total events: {{.Count}}
- Affected users: {{.UserCount}}
`))

type descriptionData struct {
	ID        string
	FirstSeen string
	LastSeen  string
	Title     string
	Permalink string
	Count     int64
	UserCount int
}

// FormatTitle returns the GitLab issue title for a Sentry issue.
func FormatTitle(issue sentry.Issue) string {
	return TitlePrefix + issue.Title
}

// FormatDescription renders the markdown body of the GitLab issue.
// Timestamps are shown in loc; a nil loc means the host's local zone.
func FormatDescription(issue sentry.Issue, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	data := descriptionData{
		ID:        issue.ID,
		FirstSeen: formatTime(issue.FirstSeen, loc),
		LastSeen:  formatTime(issue.LastSeen, loc),
		Title:     issue.Title,
		Permalink: issue.Permalink,
		Count:     int64(issue.Count),
		UserCount: issue.UserCount,
	}
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = descriptionTmpl.Execute(&buf, data)
	return buf.String()
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.In(loc).Format(displayTimeLayout)
}
