package lint

import (
	"fmt"
	"sort"
)

// Finding is a single problem reported by a rule.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Skill    string   `json:"skill"`
	Path     string   `json:"path"`
	// Line is 1-based; 0 means the finding concerns the whole file.
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Location formats the path and line as path:line.
func (f Finding) Location() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	return f.Path
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", f.Location(), f.Severity, f.Message, f.Rule)
}

// SortFindings orders findings by path, line, rule and message.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}
