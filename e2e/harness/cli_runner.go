package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/artpar/courseware/internal/cli"
)

// CLIResult holds CLI execution results.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// JSON decodes Stdout into v.
func (r *CLIResult) JSON(v any) error {
	return json.Unmarshal([]byte(r.Stdout), v)
}

// CLIRunner executes CLI commands against the harness catalog and data dir.
type CLIRunner struct {
	harness *E2EHarness
}

// Run executes a CLI command with the given arguments.
func (r *CLIRunner) Run(args ...string) (*CLIResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.harness.timeout)
	defer cancel()

	start := time.Now()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := cli.NewRootCommand("test")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{
		"--api-url", r.harness.server.BaseURL(),
		"--backend", "sqlite",
		"--data-dir", r.harness.DataDir(),
	}, args...))

	err := cmd.ExecuteContext(ctx)

	result := &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = 1
	}

	return result, err
}

// Courses lists courses with extra flags.
func (r *CLIRunner) Courses(opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"courses"}, opts...)...)
}

// Bookmark toggles a bookmark.
func (r *CLIRunner) Bookmark(id int) (*CLIResult, error) {
	return r.Run("bookmark", strconv.Itoa(id))
}

// Enroll toggles an enrollment.
func (r *CLIRunner) Enroll(id int) (*CLIResult, error) {
	return r.Run("enroll", strconv.Itoa(id))
}

// Complete marks a course completed.
func (r *CLIRunner) Complete(id int) (*CLIResult, error) {
	return r.Run("complete", strconv.Itoa(id))
}

// ProgressJSON shows the dashboard as JSON.
func (r *CLIRunner) ProgressJSON() (*CLIResult, error) {
	return r.Run("--output", "json", "progress")
}
