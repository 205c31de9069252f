package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/artpar/courseware/internal/app"
	"github.com/artpar/courseware/internal/idset"
	"github.com/artpar/courseware/internal/state"
)

// toggleResult is the machine-readable output of a toggle command.
type toggleResult struct {
	ID        int       `json:"id" yaml:"id"`
	Set       string    `json:"set" yaml:"set"`
	Added     bool      `json:"added" yaml:"added"`
	Changed   bool      `json:"changed" yaml:"changed"`
	Persisted bool      `json:"persisted" yaml:"persisted"`
	IDs       idset.Set `json:"ids" yaml:"ids"`
}

type toggleFunc func(s *state.Store, ctx context.Context, id int) state.ToggleResult

// NewBookmarkCommand creates the bookmark command.
func NewBookmarkCommand(root *rootOptions) *cobra.Command {
	return newToggleCommand(root, idset.Bookmarked, "bookmark ID", "Bookmark a course, or remove its bookmark",
		(*state.Store).ToggleBookmark)
}

// NewEnrollCommand creates the enroll command.
func NewEnrollCommand(root *rootOptions) *cobra.Command {
	return newToggleCommand(root, idset.Enrolled, "enroll ID", "Enroll in a course, or leave it",
		(*state.Store).ToggleEnrollment)
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(root *rootOptions) *cobra.Command {
	return newToggleCommand(root, idset.Completed, "complete ID", "Mark a course as completed",
		(*state.Store).MarkCompleted)
}

func newToggleCommand(root *rootOptions, kind idset.Kind, use, short string, toggle toggleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Hydrate(ctx)
				r := toggle(a.State(), ctx, id)
				res := toggleResult{
					ID:        id,
					Set:       kind.String(),
					Added:     r.Added,
					Changed:   r.Changed,
					Persisted: r.Persisted,
					IDs:       r.IDs,
				}
				return render(cmd, root, res, func(out io.Writer) error {
					writeToggle(out, kind, res)
					return nil
				})
			})
		},
	}
}

func writeToggle(out io.Writer, kind idset.Kind, res toggleResult) {
	switch {
	case !res.Changed:
		fmt.Fprintf(out, "Course %d is already %s.\n", res.ID, kind)
	case res.Added:
		fmt.Fprintf(out, "Course %d is now %s.\n", res.ID, kind)
	default:
		fmt.Fprintf(out, "Course %d is no longer %s.\n", res.ID, kind)
	}
	if !res.Persisted {
		fmt.Fprintln(out, "Warning: the change could not be saved and will be lost on exit.")
	}
	fmt.Fprintf(out, "%d %s: %v\n", res.IDs.Len(), kind, []int(res.IDs))
}
