package skills

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// LinkKind describes where in the markdown a reference was found.
type LinkKind string

const (
	// LinkKindLink is a markdown link destination
	LinkKindLink LinkKind = "link"
	// LinkKindImage is a markdown image source
	LinkKindImage LinkKind = "image"
	// LinkKindCode is a path mentioned inside an inline code span
	LinkKindCode LinkKind = "code"
	// LinkKindText is a path mentioned in running text
	LinkKindText LinkKind = "text"
)

// Link is a reference from SKILL.md to another file of the skill.
type Link struct {
	Target string   `json:"target"`
	Path   string   `json:"path"`
	Line   int      `json:"line"`
	Kind   LinkKind `json:"kind"`
}

var (
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
	// resourcePathPattern matches bundled resource paths such as
	// references/ink-playbook.md or ./scripts/check.sh in prose.
	resourcePathPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_./-])((?:\./)?(?:references|scripts|assets|evals)/(?:[A-Za-z0-9_./-]*[A-Za-z0-9_/-])?)`)
)

// extractLinks walks the markdown AST and collects references to local
// files. Fenced and indented code blocks hold illustrative samples and are
// not scanned.
func extractLinks(doc ast.Node, source []byte) []Link {
	var links []Link
	add := func(target string, kind LinkKind, offset int) {
		p, ok := localPath(target)
		if !ok {
			return
		}
		links = append(links, Link{Target: target, Path: p, Line: lineAt(source, offset), Kind: kind})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.AutoLink:
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			add(string(node.Destination), LinkKindLink, nodeOffset(node))
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			add(string(node.Destination), LinkKindImage, nodeOffset(node))
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(source))
				}
			}
			for _, m := range resourcePathPattern.FindAllStringSubmatch(sb.String(), -1) {
				add(m[1], LinkKindCode, nodeOffset(node))
			}
			return ast.WalkSkipChildren, nil
		}

		scanTextRuns(n, source, func(target string, offset int) {
			add(target, LinkKindText, offset)
		})
		return ast.WalkContinue, nil
	})

	return links
}

// scanTextRuns joins adjacent text children of n, which the inline parser
// splits at characters like '_', and reports resource paths found in them.
func scanTextRuns(n ast.Node, source []byte, report func(target string, offset int)) {
	var run []*ast.Text
	flush := func() {
		if len(run) == 0 {
			return
		}
		var sb strings.Builder
		starts := make([]int, len(run))
		for i, t := range run {
			starts[i] = sb.Len()
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		joined := sb.String()
		for _, idx := range resourcePathPattern.FindAllStringSubmatchIndex(joined, -1) {
			start := idx[2]
			i := len(starts) - 1
			for i > 0 && starts[i] > start {
				i--
			}
			report(joined[idx[2]:idx[3]], run[i].Segment.Start+(start-starts[i]))
		}
		run = run[:0]
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			run = append(run, t)
			continue
		}
		flush()
	}
	flush()
}

// localPath reports whether target refers to a file inside the skill and
// returns it cleaned, slash-separated and relative to the skill directory.
func localPath(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "/") {
		return "", false
	}
	if schemePattern.MatchString(target) {
		return "", false
	}

	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	if target == "" {
		return "", false
	}

	cleaned := path.Clean(strings.ReplaceAll(target, "\\", "/"))
	if cleaned == "." {
		return "", false
	}
	return cleaned, true
}
