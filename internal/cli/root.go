package cli

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artpar/courseware/internal/app"
	"github.com/artpar/courseware/internal/config"
)

// rootOptions holds the flags every command shares.
type rootOptions struct {
	ConfigFiles []string
	APIURL      string
	Backend     string
	DataDir     string
	LogLevel    string
	Output      string
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "courseware",
		Short:         "Courseware - browse courses and track your learning",
		Long:          "Courseware browses the course catalog and keeps your bookmarks, enrollments and completions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := parseFormat(opts.Output)
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringArrayVarP(&opts.ConfigFiles, "config", "c", nil, "Config file (repeatable, later files win)")
	flags.StringVar(&opts.APIURL, "api-url", "", "Catalog API base URL")
	flags.StringVar(&opts.Backend, "backend", "", "Storage backend: sqlite, redis or memory")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Directory holding the sqlite database")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVarP(&opts.Output, "output", "o", string(formatText), "Output format: text, json or yaml")

	cmd.AddCommand(
		NewCoursesCommand(opts),
		NewCourseCommand(opts),
		NewBookmarkCommand(opts),
		NewEnrollCommand(opts),
		NewCompleteCommand(opts),
		NewProgressCommand(opts),
		NewStatsCommand(opts),
		NewResetCommand(opts),
	)

	return cmd
}

// loadConfig reads the config files and environment, then applies flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFiles...)
	if err != nil {
		return nil, err
	}

	if o.APIURL != "" {
		cfg.API.BaseURL = o.APIURL
	}
	if o.Backend != "" {
		cfg.Storage.Backend = o.Backend
	}
	if o.DataDir != "" {
		cfg.Storage.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration and opens the application. The caller closes it.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	lg, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	a, err := app.Open(ctx, cfg, app.WithLogger(lg))
	if err != nil {
		_ = lg.Sync()
		return nil, err
	}
	return a, nil
}

// withApp opens the application, runs fn and closes it.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := o.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger().Warn("Close application", zap.Error(err))
		}
		_ = a.Logger().Sync()
	}()

	return fn(ctx, a)
}
