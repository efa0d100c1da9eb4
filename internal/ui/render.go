package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// CloseSummary is what gl-close reports when it finishes.
type CloseSummary struct {
	Attempted   int
	Closed      int
	Failed      []int
	Interrupted bool
}

// RenderCloseSummary formats the final gl-close report. The first line always
// carries the closed count.
func RenderCloseSummary(s CloseSummary) string {
	var b strings.Builder
	icon := RenderPassIcon()
	switch {
	case s.Interrupted:
		icon = RenderWarnIcon()
	case len(s.Failed) > 0:
		icon = RenderFailIcon()
	}
	fmt.Fprintf(&b, "%s Closed %d of %d issues\n", icon, s.Closed, s.Attempted)
	if len(s.Failed) > 0 {
		ids := make([]string, len(s.Failed))
		for i, id := range s.Failed {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(&b, "  %s %s\n", RenderFail("failed:"), strings.Join(ids, ", "))
	}
	if s.Interrupted {
		fmt.Fprintf(&b, "  %s\n", RenderWarn("interrupted before all ids were attempted"))
	}
	return b.String()
}

// RecordRow is one line of `sentrylab state list`.
type RecordRow struct {
	SourceID      string
	GitLabIID     int
	LastSeen      time.Time
	LastProcessed time.Time
}

var (
	colID   = lipgloss.NewStyle().Width(14)
	colIID  = lipgloss.NewStyle().Width(10)
	colTime = lipgloss.NewStyle().Width(20)
)

// RenderRecords renders rows as an aligned table, newest mirror first, with
// times relative to now.
func RenderRecords(rows []RecordRow, now time.Time) string {
	if len(rows) == 0 {
		return RenderMuted("No mirrored issues.") + "\n"
	}
	sorted := append([]RecordRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastProcessed.Equal(sorted[j].LastProcessed) {
			return sorted[i].LastProcessed.After(sorted[j].LastProcessed)
		}
		return sorted[i].SourceID < sorted[j].SourceID
	})

	var b strings.Builder
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		colID.Render("SENTRY ID"),
		colIID.Render("GITLAB"),
		colTime.Render("LAST SEEN"),
		colTime.Render("MIRRORED"),
	)
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(RenderSeparator())
	b.WriteString("\n")
	for _, r := range sorted {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			colID.Render(r.SourceID),
			colIID.Render(RenderAccent("#"+strconv.Itoa(r.GitLabIID))),
			colTime.Render(humanize.RelTime(r.LastSeen, now, "ago", "from now")),
			colTime.Render(humanize.RelTime(r.LastProcessed, now, "ago", "from now")),
		))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n", RenderMuted(fmt.Sprintf("%d mirrored issues", len(sorted))))
	return b.String()
}
