package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/courseware/internal/course"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatText, nil
	default:
		return "", errors.Errorf("unknown output format %q", s)
	}
}

// render writes v as JSON or YAML, or calls human for text output.
func render(cmd *cobra.Command, opts *rootOptions, v any, human func(out io.Writer) error) error {
	f, err := parseFormat(opts.Output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch f {
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case formatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return encoder.Close()
	default:
		return human(out)
	}
}

// marks renders the markers shown next to a course in text output.
func marks(bookmarked, enrolled, completed bool) string {
	var b strings.Builder
	for _, m := range []struct {
		on bool
		r  byte
	}{{bookmarked, 'B'}, {enrolled, 'E'}, {completed, 'C'}} {
		if m.on {
			b.WriteByte(m.r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func writeCourseLine(out io.Writer, c course.Summary, mark string) {
	fmt.Fprintf(out, "%s %4d  %-40s %10s  %s\n", mark, c.ID, c.Title, "$"+c.Price.StringFixed(2), c.Instructor.Name)
}
