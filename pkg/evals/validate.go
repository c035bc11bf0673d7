package evals

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Problem is a semantic issue in an eval prompt list.
type Problem struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// Validate checks a suite belonging to the skill skillName stored in
// skillDir. An empty skillName skips the skill_name check.
func Validate(suite *Suite, skillDir, skillName string) []Problem {
	var problems []Problem
	add := func(p, format string, args ...any) {
		problems = append(problems, Problem{Path: p, Message: fmt.Sprintf(format, args...)})
	}

	if suite.SkillName != "" && skillName != "" && suite.SkillName != skillName {
		add("skill_name", "skill_name %q does not match skill %q", suite.SkillName, skillName)
	}

	parallel := len(suite.Prompts) > 0 || len(suite.Assertions) > 0
	if len(suite.Evals) > 0 && parallel {
		add("", "use either evals or prompts with assertions, not both")
		return problems
	}

	if parallel {
		if len(suite.Prompts) != len(suite.Assertions) {
			add("", "found %d prompts but %d assertion lists", len(suite.Prompts), len(suite.Assertions))
		}
		for i, p := range suite.Prompts {
			if strings.TrimSpace(p) == "" {
				add(fmt.Sprintf("prompts[%d]", i), "prompt is empty")
			}
		}
		for i, list := range suite.Assertions {
			at := fmt.Sprintf("assertions[%d]", i)
			if len(list) == 0 {
				add(at, "no assertions")
			}
			emptyChecks(at, list, add)
		}
		return problems
	}

	if len(suite.Evals) == 0 {
		add("evals", "no eval cases defined")
		return problems
	}

	seen := make(map[string]int)
	for i, c := range suite.Evals {
		at := fmt.Sprintf("evals[%d]", i)

		if c.ID != "" {
			if first, dup := seen[c.ID]; dup {
				add(at+".id", "duplicate id %q (also evals[%d])", c.ID, first)
			} else {
				seen[c.ID] = i
			}
		}
		if strings.TrimSpace(c.Prompt) == "" {
			add(at+".prompt", "prompt is empty")
		}

		if len(c.Checks()) == 0 {
			add(at+".assertions", "no assertions")
		}
		emptyChecks(at+".assertions", c.Assertions, add)
		emptyChecks(at+".expectations", c.Expectations, add)

		for j, f := range c.Files {
			if msg := checkFile(skillDir, suite.Path, f); msg != "" {
				add(fmt.Sprintf("%s.files[%d]", at, j), "%s", msg)
			}
		}
	}

	return problems
}

func emptyChecks(at string, checks []string, add func(string, string, ...any)) {
	for i, c := range checks {
		if strings.TrimSpace(c) == "" {
			add(fmt.Sprintf("%s[%d]", at, i), "assertion is empty")
		}
	}
}

// checkFile resolves an eval input file relative to the skill directory,
// falling back to the directory holding the eval file.
func checkFile(skillDir, evalPath, file string) string {
	if strings.TrimSpace(file) == "" {
		return "file path is empty"
	}
	slash := filepath.ToSlash(file)
	if path.IsAbs(slash) || filepath.IsAbs(file) {
		return fmt.Sprintf("file %q must be relative to the skill directory", file)
	}
	clean := path.Clean(slash)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Sprintf("file %q is outside the skill directory", file)
	}

	candidates := []string{filepath.Join(skillDir, filepath.FromSlash(clean))}
	if evalPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(evalPath), filepath.FromSlash(clean)))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("file %q does not exist", file)
}
