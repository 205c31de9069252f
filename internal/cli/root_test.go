package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/artpar/courseware/internal/catalog/catalogtest"
)

// env runs commands against a fake catalog and a private sqlite database.
type env struct {
	t    *testing.T
	srv  *catalogtest.Server
	base []string
}

func newEnv(t *testing.T, products int) *env {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	srv := catalogtest.New(catalogtest.Products(products), catalogtest.Users(3))
	t.Cleanup(srv.Close)

	return &env{
		t:   t,
		srv: srv,
		base: []string{
			"--api-url", srv.BaseURL(),
			"--backend", "sqlite",
			"--data-dir", t.TempDir(),
		},
	}
}

func (e *env) run(args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand("test")
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(append([]string{}, e.base...), args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func TestNewRootCommand(t *testing.T) {
	t.Run("creates root command", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		assert.NotNil(t, cmd)
		assert.Equal(t, "courseware", cmd.Use)
		assert.Equal(t, "1.0.0", cmd.Version)
	})

	t.Run("has output flag", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		flag := cmd.PersistentFlags().Lookup("output")
		require.NotNil(t, flag)
		assert.Equal(t, "o", flag.Shorthand)
		assert.Equal(t, "text", flag.DefValue)
	})

	t.Run("has config flags", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, name := range []string{"config", "api-url", "backend", "data-dir", "log-level"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, name := range []string{"courses", "bookmark", "enroll", "complete", "progress", "stats", "reset"} {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Contains(t, sub.Use, name)
		}
		show, _, err := cmd.Find([]string{"course", "show"})
		require.NoError(t, err)
		assert.Contains(t, show.Use, "show")
	})

	t.Run("rejects unknown output format", func(t *testing.T) {
		e := newEnv(t, 3)
		_, err := e.run("--output", "xml", "stats")
		assert.ErrorContains(t, err, "unknown output format")
	})

	t.Run("rejects invalid backend", func(t *testing.T) {
		e := newEnv(t, 3)
		_, err := e.run("--backend", "etcd", "stats")
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}

func TestCoursesCommand(t *testing.T) {
	t.Run("lists the first page", func(t *testing.T) {
		e := newEnv(t, 12)
		out := e.mustRun("courses")

		assert.Contains(t, out, "Course 1")
		assert.Contains(t, out, "$10.00")
		assert.Contains(t, out, "Instructor")
		assert.Contains(t, out, "Page 1 of 2 (12 courses, more available)")
	})

	t.Run("loads several pages", func(t *testing.T) {
		e := newEnv(t, 12)
		out := e.mustRun("-o", "json", "courses", "--pages", "3")

		var res coursesResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Len(t, res.Courses, 12)
		assert.Equal(t, 2, res.Page)
		assert.False(t, res.HasMore)
		assert.Len(t, e.srv.ProductListRequests(), 2)
	})

	t.Run("sends search and sort", func(t *testing.T) {
		e := newEnv(t, 12)
		e.mustRun("courses", "--query", "Course 1", "--sort", "za")

		reqs := e.srv.ProductListRequests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "Course 1", reqs[0].Query.Get("query"))
		assert.Equal(t, "title", reqs[0].Query.Get("sortBy"))
		assert.Equal(t, "desc", reqs[0].Query.Get("sortType"))
	})

	t.Run("rejects unknown sort", func(t *testing.T) {
		e := newEnv(t, 3)
		_, err := e.run("courses", "--sort", "rating")
		assert.Error(t, err)
		assert.Zero(t, e.srv.RequestCount())
	})

	t.Run("falls back to cached courses", func(t *testing.T) {
		e := newEnv(t, 4)
		e.mustRun("courses")

		e.srv.Fail(catalogtest.Failure{Status: http.StatusServiceUnavailable, Message: "maintenance"})
		out := e.mustRun("courses")
		assert.Contains(t, out, "Offline: maintenance")
		assert.Contains(t, out, "Course 4")
	})

	t.Run("fails without cache", func(t *testing.T) {
		e := newEnv(t, 4)
		e.srv.Fail(catalogtest.Failure{Status: http.StatusInternalServerError, Message: "down"})
		_, err := e.run("courses")
		assert.ErrorContains(t, err, "down")
	})

	t.Run("marks bookmarked courses", func(t *testing.T) {
		e := newEnv(t, 3)
		e.mustRun("bookmark", "2")
		out := e.mustRun("courses")
		assert.Contains(t, out, "B--    2  Course 2")
	})
}

func TestCourseShowCommand(t *testing.T) {
	t.Run("shows details", func(t *testing.T) {
		e := newEnv(t, 5)
		out := e.mustRun("course", "show", "3")

		assert.Contains(t, out, "Course 3 (#3)")
		assert.Contains(t, out, "Price: $30.00")
		assert.Contains(t, out, "Description of course 3")
		assert.Contains(t, out, "Lisbon, Portugal")
	})

	t.Run("reports missing course", func(t *testing.T) {
		e := newEnv(t, 5)
		_, err := e.run("course", "show", "99")
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("rejects invalid id", func(t *testing.T) {
		e := newEnv(t, 5)
		_, err := e.run("course", "show", "abc")
		assert.ErrorContains(t, err, "invalid course id")
	})
}

func TestToggleCommands(t *testing.T) {
	t.Run("bookmark toggles and persists", func(t *testing.T) {
		e := newEnv(t, 3)
		assert.Contains(t, e.mustRun("bookmark", "1"), "Course 1 is now bookmarked.")
		assert.Contains(t, e.mustRun("bookmark", "2"), "2 bookmarked: [1 2]")
		assert.Contains(t, e.mustRun("bookmark", "1"), "Course 1 is no longer bookmarked.")
	})

	t.Run("enroll reports json", func(t *testing.T) {
		e := newEnv(t, 3)
		out := e.mustRun("-o", "json", "enroll", "7")

		var res toggleResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, 7, res.ID)
		assert.Equal(t, "enrolled", res.Set)
		assert.True(t, res.Added)
		assert.True(t, res.Changed)
		assert.True(t, res.Persisted)
		assert.Equal(t, []int{7}, []int(res.IDs))
	})

	t.Run("complete is idempotent", func(t *testing.T) {
		e := newEnv(t, 3)
		assert.Contains(t, e.mustRun("complete", "2"), "Course 2 is now completed.")
		assert.Contains(t, e.mustRun("complete", "2"), "Course 2 is already completed.")
	})

	t.Run("requires an id", func(t *testing.T) {
		e := newEnv(t, 3)
		_, err := e.run("enroll")
		assert.Error(t, err)
	})
}

func TestProgressCommand(t *testing.T) {
	t.Run("shows the dashboard", func(t *testing.T) {
		e := newEnv(t, 6)
		e.mustRun("enroll", "1")
		e.mustRun("enroll", "2")
		e.mustRun("complete", "1")
		e.mustRun("bookmark", "5")

		out := e.mustRun("-o", "yaml", "progress")
		var d struct {
			EnrolledCount        int `yaml:"enrolled_count"`
			CompletedCount       int `yaml:"completed_count"`
			CompletionPercentage int `yaml:"completion_percentage"`
			ActiveEnrolled       []struct {
				ID int `yaml:"id"`
			} `yaml:"active_enrolled"`
			Recommended []struct {
				ID int `yaml:"id"`
			} `yaml:"recommended"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &d))
		assert.Equal(t, 2, d.EnrolledCount)
		assert.Equal(t, 1, d.CompletedCount)
		assert.Equal(t, 50, d.CompletionPercentage)
		require.Len(t, d.ActiveEnrolled, 1)
		assert.Equal(t, 2, d.ActiveEnrolled[0].ID)
		assert.Len(t, d.Recommended, 4)
	})

	t.Run("shows persisted sets when offline", func(t *testing.T) {
		e := newEnv(t, 6)
		e.mustRun("enroll", "3")
		e.srv.Fail(catalogtest.Failure{Status: http.StatusInternalServerError, Message: "down"})

		out := e.mustRun("progress")
		assert.Contains(t, out, "Error: down")
		assert.Contains(t, out, "Enrolled: 1  Completed: 0  Progress: 0%")
	})
}

func TestStatsAndReset(t *testing.T) {
	e := newEnv(t, 3)
	e.mustRun("bookmark", "1")
	e.mustRun("enroll", "1")
	e.mustRun("enroll", "1")

	out := e.mustRun("-o", "json", "stats")
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 1, counts["bookmarksAdded"])
	assert.Equal(t, 1, counts["enrollmentsAdded"])
	assert.Equal(t, 3, counts["appOpens"])

	assert.Contains(t, e.mustRun("reset"), "Course state reset.")
	assert.Contains(t, e.mustRun("bookmark", "1"), "1 bookmarked: [1]")

	// Counters survive a reset.
	out = e.mustRun("-o", "json", "stats")
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 2, counts["bookmarksAdded"])
}
