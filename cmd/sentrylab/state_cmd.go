package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sentrylab/internal/lockfile"
	"github.com/steveyegge/sentrylab/internal/state"
	"github.com/steveyegge/sentrylab/internal/ui"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the mirror state",
}

var stateJSON bool

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mirrored Sentry issues and their GitLab issues",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := state.Open(cmd.Context(), settings.State.Backend, settings.State.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		records := store.Snapshot()
		w := cmd.OutOrStdout()
		if stateJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		rows := make([]ui.RecordRow, 0, len(records))
		for id, rec := range records {
			rows = append(rows, ui.RecordRow{
				SourceID:      id,
				GitLabIID:     rec.GitLabIssueID,
				LastSeen:      rec.LastSeen,
				LastProcessed: rec.LastProcessed,
			})
		}
		fmt.Fprint(w, ui.RenderRecords(rows, time.Now()))

		if held, info := lockfile.Held(settings.State.Path); held && info != nil {
			fmt.Fprintf(w, "%s %s\n", ui.RenderInfoIcon(),
				ui.RenderMuted(fmt.Sprintf("poller running (pid %d)", info.PID)))
		}
		return nil
	},
}

func init() {
	stateListCmd.Flags().BoolVar(&stateJSON, "json", false, "Output the raw records as JSON")
	stateCmd.AddCommand(stateListCmd)
	rootCmd.AddCommand(stateCmd)
}
