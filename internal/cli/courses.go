package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/artpar/courseware/internal/app"
	"github.com/artpar/courseware/internal/browse"
	"github.com/artpar/courseware/internal/course"
)

// CoursesOptions holds options for the courses command.
type CoursesOptions struct {
	Page  int
	Pages int
	Query string
	Sort  string
}

// coursesResult is the machine-readable output of the courses command.
type coursesResult struct {
	Courses    []course.Summary `json:"courses" yaml:"courses"`
	Page       int              `json:"page" yaml:"page"`
	TotalPages int              `json:"totalPages" yaml:"total_pages"`
	TotalItems int              `json:"totalItems" yaml:"total_items"`
	HasMore    bool             `json:"hasMore" yaml:"has_more"`
	Offline    bool             `json:"offline" yaml:"offline"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewCoursesCommand creates the courses command.
func NewCoursesCommand(root *rootOptions) *cobra.Command {
	opts := &CoursesOptions{}

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List catalog courses",
		Long: "List catalog courses page by page. When the catalog cannot be reached the " +
			"courses fetched earlier are shown instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := course.ParseSort(opts.Sort)
			if err != nil {
				return err
			}
			if opts.Page < 1 {
				return errors.Errorf("page must be at least 1, got %d", opts.Page)
			}
			if opts.Pages < 1 {
				return errors.Errorf("pages must be at least 1, got %d", opts.Pages)
			}
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runCourses(ctx, cmd, root, a, opts, sort)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "First page to load")
	cmd.Flags().IntVar(&opts.Pages, "pages", 1, "Number of pages to load")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Search course titles")
	cmd.Flags().StringVarP(&opts.Sort, "sort", "s", "", "Sort: az, za, price-asc or price-desc")

	return cmd
}

func runCourses(ctx context.Context, cmd *cobra.Command, root *rootOptions, a *app.App, opts *CoursesOptions, sort course.SortOption) error {
	a.Hydrate(ctx)

	b := a.Browser()
	v, err := b.Load(ctx, opts.Page, browse.Query{Search: opts.Query, Sort: sort}, course.ModeInitial)
	for i := 1; err == nil && i < opts.Pages && v.HasMore; i++ {
		v, err = b.LoadMore(ctx)
	}
	// An error with courses on screen is shown alongside them.
	if err != nil && len(v.Courses) == 0 {
		return err
	}

	res := coursesResult{
		Courses:    v.Courses,
		Page:       v.Page,
		TotalPages: v.TotalPages,
		TotalItems: v.TotalItems,
		HasMore:    v.HasMore,
		Offline:    v.Offline,
	}
	if v.Err != nil {
		res.Error = v.Err.Message
	}

	state := a.State()
	return render(cmd, root, res, func(out io.Writer) error {
		if res.Offline {
			fmt.Fprintf(out, "Offline: %s. Showing cached courses.\n", res.Error)
		} else if res.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", res.Error)
		}
		if len(res.Courses) == 0 {
			fmt.Fprintln(out, "No courses found.")
			return nil
		}
		for _, c := range res.Courses {
			writeCourseLine(out, c, marks(state.IsBookmarked(c.ID), state.IsEnrolled(c.ID), state.IsCompleted(c.ID)))
		}
		more := ""
		if res.HasMore {
			more = ", more available"
		}
		fmt.Fprintf(out, "Page %d of %d (%d courses%s)\n", res.Page, res.TotalPages, res.TotalItems, more)
		return nil
	})
}

// NewCourseCommand creates the course command.
func NewCourseCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Inspect a single course",
	}
	cmd.AddCommand(newCourseShowCommand(root))
	return cmd
}

func newCourseShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show course details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return root.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Hydrate(ctx)
				d, err := a.Catalog().FetchDetail(ctx, id)
				if err != nil {
					return err
				}
				state := a.State()
				return render(cmd, root, d, func(out io.Writer) error {
					fmt.Fprintf(out, "%s (#%d)\n", d.Title, d.ID)
					fmt.Fprintf(out, "Instructor: %s", d.Instructor.Name)
					if d.Instructor.Location != "" {
						fmt.Fprintf(out, ", %s", d.Instructor.Location)
					}
					fmt.Fprintln(out)
					fmt.Fprintf(out, "Price: $%s (%.0f%% off)\n", d.Price.StringFixed(2), d.DiscountPercentage)
					fmt.Fprintf(out, "Category: %s  Brand: %s  Rating: %.1f  Seats: %d\n", d.Category, d.Brand, d.Rating, d.Stock)
					fmt.Fprintf(out, "Status: %s\n", marks(state.IsBookmarked(id), state.IsEnrolled(id), state.IsCompleted(id)))
					if d.Description != "" {
						fmt.Fprintln(out)
						fmt.Fprintln(out, d.Description)
					}
					return nil
				})
			})
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, errors.Errorf("invalid course id %q", s)
	}
	return id, nil
}
