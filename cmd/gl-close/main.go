// gl-close closes GitLab issues in bulk.
//
// Usage:
//
//	gl-close --ids 123,456,789
//	gl-close --ids 44-240
//	gl-close --ids 44-240,300,350-400
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/sentrylab/internal/cleanup"
	"github.com/steveyegge/sentrylab/internal/config"
	"github.com/steveyegge/sentrylab/internal/gitlab"
	"github.com/steveyegge/sentrylab/internal/logging"
	"github.com/steveyegge/sentrylab/internal/ui"
)

// deps are the pieces tests replace.
type deps struct {
	newCloser   func(s *config.Settings, log *slog.Logger) cleanup.Closer
	interactive func() bool
	confirm     func(title string) (bool, error)
	logOutput   io.Writer
}

func defaultDeps() deps {
	return deps{
		newCloser:   newGitLabCloser,
		interactive: ui.IsInteractive,
		confirm:     confirmPrompt,
		logOutput:   os.Stderr,
	}
}

func newGitLabCloser(s *config.Settings, log *slog.Logger) cleanup.Closer {
	client := gitlab.NewClient(s.GitLab.Token, s.GitLab.APIURL, s.GitLab.ProjectID)
	if s.GitLab.InsecureSkipVerify {
		log.Warn("gitlab TLS certificate verification disabled", "url", s.GitLab.APIURL)
		client = client.WithInsecureTLS()
	}
	return client
}

func confirmPrompt(title string) (bool, error) {
	ok := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Close").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("invalid usage")

func newRootCmd(d deps) *cobra.Command {
	var (
		ids        string
		yes        bool
		configFile string
	)
	cmd := &cobra.Command{
		Use:   "gl-close --ids <list>",
		Short: "Close GitLab issues by id or id range",
		Example: `  gl-close --ids 123,456,789
  gl-close --ids 44-240
  gl-close --ids 44-240,300,350-400`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unexpected argument %q", errUsage, args[0])
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("ids") {
				return fmt.Errorf("%w: --ids is required", errUsage)
			}
			list, err := cleanup.ExpandIDs(ids)
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}

			if err := config.Initialize(configFile); err != nil {
				return err
			}
			s, err := config.Load()
			if err != nil {
				return err
			}
			if err := s.Validate(config.SectionGitLab); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			level, err := logging.ParseLevel(s.Log.Level)
			if err != nil {
				return err
			}
			log := logging.New(d.logOutput, level, s.Log.Format)

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "%s %s\n", ui.RenderInfoIcon(), ui.RenderMuted("No ids to close."))
				return nil
			}
			if !yes && d.interactive() {
				ok, err := d.confirm(fmt.Sprintf("Close %d GitLab issues in project %s?", len(list), s.GitLab.ProjectID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			res := cleanup.CloseAll(cmd.Context(), d.newCloser(s, log), list, log)
			fmt.Fprint(out, ui.RenderCloseSummary(ui.CloseSummary{
				Attempted:   res.Attempted,
				Closed:      len(res.Closed),
				Failed:      res.Failed,
				Interrupted: res.Interrupted,
			}))
			if res.Interrupted {
				return cmd.Context().Err()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ids, "ids", "", "Comma-separated issue IIDs and start-end ranges")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&configFile, "config", "", "Config file (default: ./sentrylab.yaml if present)")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	return cmd
}

// run executes gl-close and returns the process exit code. With no
// arguments it prints usage and fails before any configuration is read.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	cmd := newRootCmd(d)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if len(args) == 0 {
		fmt.Fprint(stderr, cmd.UsageString())
		return 1
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, cmd.UsageString())
		}
		return 1
	}
	return 0
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	cancel()
	os.Exit(code)
}
