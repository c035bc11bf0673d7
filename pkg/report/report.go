// Package report renders lint reports as text, JSON or GitHub workflow
// annotations.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/presenter"
)

// Format selects the report renderer.
type Format string

const (
	// FormatText groups findings by skill for terminals
	FormatText Format = "text"
	// FormatJSON emits the full report
	FormatJSON Format = "json"
	// FormatGitHub emits GitHub Actions workflow commands
	FormatGitHub Format = "github"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatGitHub}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown output format %q (want text, json or github)", s)
}

// Write renders r to w.
func Write(w io.Writer, r *lint.Report, format Format) error {
	switch format {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatGitHub:
		return writeGitHub(w, r)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

var severityColors = map[lint.Severity]*color.Color{
	lint.SeverityError:   color.New(color.FgRed),
	lint.SeverityWarning: color.New(color.FgYellow),
	lint.SeverityInfo:    color.New(color.FgCyan),
}

func writeText(w io.Writer, r *lint.Report) error {
	bold := color.New(color.Bold)

	var current string
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, f := range r.Findings {
		group := f.Skill + "\x00" + f.Path
		if i == 0 || group != current {
			if err := tw.Flush(); err != nil {
				return errors.Wrap(err, "failed to write report")
			}
			if i > 0 {
				fmt.Fprintln(w)
			}
			bold.Fprintf(w, "%s", f.Skill)
			fmt.Fprintf(w, " (%s)\n", f.Path)
			current = group
		}

		line := "-"
		if f.Line > 0 {
			line = strconv.Itoa(f.Line)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", line, severityColors[f.Severity].Sprint(f.Severity), f.Message, f.Rule)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	if len(r.Findings) > 0 {
		fmt.Fprintln(w)
	}

	presenter.NewWithOptions(w, w, presenter.ColorAuto).Summary(presenter.Counts{
		Skills:   len(r.Skills),
		Errors:   r.Errors,
		Warnings: r.Warnings,
		Infos:    r.Infos,
	})
	return nil
}

func writeJSON(w io.Writer, r *lint.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "failed to encode report")
}

var githubLevels = map[lint.Severity]string{
	lint.SeverityError:   "error",
	lint.SeverityWarning: "warning",
	lint.SeverityInfo:    "notice",
}

// writeGitHub emits one workflow command per finding, e.g.
// ::error file=skills/ink/SKILL.md,line=9,title=reference-exists::message
func writeGitHub(w io.Writer, r *lint.Report) error {
	for _, f := range r.Findings {
		props := []string{"file=" + escapeProperty(f.Path)}
		if f.Line > 0 {
			props = append(props, "line="+strconv.Itoa(f.Line))
		}
		props = append(props, "title="+escapeProperty(f.Rule))

		if _, err := fmt.Fprintf(w, "::%s %s::%s\n", githubLevels[f.Severity], strings.Join(props, ","), escapeData(f.Message)); err != nil {
			return errors.Wrap(err, "failed to write annotation")
		}
	}
	return nil
}

func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}
