package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artpar/courseware/internal/analytics"
	"github.com/artpar/courseware/internal/app"
	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/views"
)

// NewProgressCommand creates the progress command.
func NewProgressCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show bookmarks, enrollments and completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Start(ctx); err != nil {
					// The dashboard still shows the persisted sets.
					a.Logger().Warn("Fetch course list", zap.Error(err))
				}
				snap := a.State().Snapshot()
				d := views.Build(snap)
				return render(cmd, root, d, func(out io.Writer) error {
					if snap.Err != nil {
						fmt.Fprintf(out, "Error: %s\n", snap.Err.Message)
					}
					fmt.Fprintf(out, "Enrolled: %d  Completed: %d  Progress: %d%%\n",
						d.EnrolledCount, d.CompletedCount, d.CompletionPercentage)
					writeSection(out, "In progress", d.ActiveEnrolled)
					writeSection(out, "Completed", d.Completed)
					writeSection(out, "Bookmarked", d.Bookmarked)
					writeSection(out, "Recommended", d.Recommended)
					return nil
				})
			})
		},
	}
}

func writeSection(out io.Writer, title string, courses []course.Summary) {
	fmt.Fprintf(out, "\n%s (%d)\n", title, len(courses))
	for _, c := range courses {
		writeCourseLine(out, c, "   ")
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				counts := a.Tracker().Counts(ctx)
				res := make(map[string]int, len(counts))
				for e, n := range counts {
					res[string(e)] = n
				}
				return render(cmd, root, res, func(out io.Writer) error {
					for _, e := range analytics.Events {
						fmt.Fprintf(out, "%-18s %d\n", e, counts[e])
					}
					return nil
				})
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget bookmarks, enrollments, completions and cached courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				cleared := a.State().Reset(ctx)
				res := map[string]bool{"cleared": cleared}
				return render(cmd, root, res, func(out io.Writer) error {
					if !cleared {
						fmt.Fprintln(out, "Reset in memory, but stored data could not be removed.")
						return nil
					}
					fmt.Fprintln(out, "Course state reset.")
					return nil
				})
			})
		},
	}
}
