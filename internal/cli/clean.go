package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/usecase"
)

// newCleanCommand creates the clean command.
func newCleanCommand(e *env) *cobra.Command {
	var (
		olderThan  string
		failedOnly bool
		all        bool
		dryRun     bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove old run reports from the output directory",
		Long: `Remove old run reports from the output directory.

The runs to remove are listed first and removed after confirmation.
--all also removes per-job log files older than the same age.
Ages accept a day count ("30d" or "30") or a Go duration ("12h").`,
		Example: `  par clean --older-than 7d --dry-run
  par clean --older-than 0 --failed --force
  par clean --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			age, err := domain.ParseAge(olderThan)
			if err != nil {
				return err
			}

			uc := c.CleanResultsUseCase()
			in := usecase.CleanResultsInput{
				Before:     c.Clock.Now().Add(-age),
				FailedOnly: failedOnly,
				JobLogs:    all,
				DryRun:     true,
			}

			// Preview first so the user sees exactly what will go.
			preview, err := uc.Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if preview.Empty() {
				_, _ = fmt.Fprintf(w, "Nothing to clean (kept %d runs).\n", preview.Kept)
				return nil
			}
			printCleanPlan(w, preview)

			if dryRun {
				_, _ = fmt.Fprintln(w, "Dry run: nothing removed.")
				return nil
			}
			if !force && !confirm(cmd.InOrStdin(), w, "Proceed with cleanup? [y/N] ") {
				_, _ = fmt.Fprintln(w, "Aborted.")
				return nil
			}

			in.DryRun = false
			out, err := uc.Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			for _, removeErr := range out.Errors {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", removeErr)
			}
			_, _ = fmt.Fprintf(w, "Removed %d runs and %d job logs, freeing %s; kept %d runs\n",
				len(out.Removed), len(out.Logs), humanize.IBytes(uint64(out.FreedSize)), out.Kept)
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "Only runs older than this age")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only runs with failed or timed-out jobs")
	cmd.Flags().BoolVar(&all, "all", false, "Also remove job log files older than the age")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be removed")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func printCleanPlan(w io.Writer, out *usecase.CleanResultsOutput) {
	if len(out.Removed) > 0 {
		_, _ = fmt.Fprintln(w, "Runs to remove:")
		for _, rec := range out.Removed {
			_, _ = fmt.Fprintf(w, "  %s (%s, %d jobs, %d failed, %s)\n",
				rec.Path, humanize.Time(rec.CreatedAt), rec.TotalJobs, rec.FailedJobs, humanize.IBytes(uint64(rec.Size)))
		}
	}
	if len(out.Logs) > 0 {
		_, _ = fmt.Fprintln(w, "Job logs to remove:")
		for _, l := range out.Logs {
			_, _ = fmt.Fprintf(w, "  %s (%s, %s)\n", l.Path, humanize.Time(l.ModTime), humanize.IBytes(uint64(l.Size)))
		}
	}
	_, _ = fmt.Fprintf(w, "Total: %d runs, %d job logs, %s; keeping %d runs\n\n",
		len(out.Removed), len(out.Logs), humanize.IBytes(uint64(out.FreedSize)), out.Kept)
}

// confirm asks a yes/no question. Anything but y or yes, including EOF, is no.
func confirm(r io.Reader, w io.Writer, question string) bool {
	_, _ = fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(w)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
