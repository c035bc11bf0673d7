// Package lint checks skills against packaging and integrity rules.
package lint

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

// Linter runs a set of rules over skills.
type Linter struct {
	rules       []Rule
	disabled    []glob.Glob
	overrides   map[string]Severity
	globs       []severityGlob
	concurrency int
}

type severityGlob struct {
	pattern  string
	matcher  glob.Glob
	severity Severity
}

// Option configures a Linter
type Option func(*Linter) error

// WithRules replaces the built-in rule set.
func WithRules(rules ...Rule) Option {
	return func(l *Linter) error {
		l.rules = rules
		return nil
	}
}

// WithDisabled turns off rules whose ID matches any of the glob patterns,
// e.g. "reference-*".
func WithDisabled(patterns ...string) Option {
	return func(l *Linter) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return errors.Wrapf(err, "invalid rule pattern %q", p)
			}
			l.disabled = append(l.disabled, g)
		}
		return nil
	}
}

// WithSeverityOverrides changes the severity of rules. Keys are rule IDs or
// glob patterns; an exact ID wins over patterns, and patterns apply in
// lexical order.
func WithSeverityOverrides(overrides map[string]Severity) Option {
	return func(l *Linter) error {
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			l.overrides[k] = overrides[k]
			g, err := glob.Compile(k)
			if err != nil {
				return errors.Wrapf(err, "invalid rule pattern %q", k)
			}
			l.globs = append(l.globs, severityGlob{pattern: k, matcher: g, severity: overrides[k]})
		}
		return nil
	}
}

// WithConcurrency bounds how many skills are checked at once. Values below
// one mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(l *Linter) error {
		l.concurrency = n
		return nil
	}
}

// NewLinter creates a linter running DefaultRules unless WithRules is given.
func NewLinter(opts ...Option) (*Linter, error) {
	l := &Linter{
		rules:     DefaultRules(),
		overrides: make(map[string]Severity),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.concurrency < 1 {
		l.concurrency = runtime.GOMAXPROCS(0)
	}
	return l, nil
}

// Enabled reports whether the rule with the given ID runs.
func (l *Linter) Enabled(id string) bool {
	for _, g := range l.disabled {
		if g.Match(id) {
			return false
		}
	}
	return true
}

// Severity returns the effective severity of a rule.
func (l *Linter) Severity(r Rule) Severity {
	if s, ok := l.overrides[r.ID()]; ok {
		return s
	}
	for _, g := range l.globs {
		if g.matcher.Match(r.ID()) {
			return g.severity
		}
	}
	return r.DefaultSeverity()
}

// Rules returns the enabled rules.
func (l *Linter) Rules() []Rule {
	var out []Rule
	for _, r := range l.rules {
		if l.Enabled(r.ID()) {
			out = append(out, r)
		}
	}
	return out
}

// Lint checks the given skills. Per-skill rules run concurrently; set rules
// run once all skills are checked.
func (l *Linter) Lint(ctx context.Context, all []*skills.Skill) (*Report, error) {
	return l.run(ctx, all, nil, nil)
}

// LintPaths scans roots recursively and lints every skill found. Skills
// that fail to load are reported as frontmatter-present findings.
func (l *Linter) LintPaths(ctx context.Context, roots []string, opts skills.ScanOptions) (*Report, error) {
	found, err := skills.ScanAll(roots, opts)
	loadErrs := skills.LoadErrors(err)
	if err != nil && loadErrs == nil {
		return nil, err
	}

	var extra []Finding
	rule := &FrontmatterPresentRule{}
	for _, le := range loadErrs {
		logger.G(ctx).WithError(le.Err).WithField("path", le.Path).Debug("skill failed to load")

		line := 1
		var fmErr *skills.FrontmatterError
		if errors.As(le.Err, &fmErr) && fmErr.Line > 0 {
			line = fmErr.Line
		}
		broken := &skills.Skill{Path: le.Path}
		extra = append(extra, newFinding(rule, broken, line, "%s", rootCause(le.Err)))
	}

	return l.run(ctx, found, extra, roots)
}

func rootCause(err error) string {
	var fmErr *skills.FrontmatterError
	if errors.As(err, &fmErr) {
		return "invalid frontmatter: " + fmErr.Err.Error()
	}
	return err.Error()
}

func (l *Linter) run(ctx context.Context, all []*skills.Skill, extra []Finding, roots []string) (*Report, error) {
	ctx, span := telemetry.Start(ctx, "lint.run", attribute.StringSlice("lint.roots", roots))

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Roots:     roots,
	}
	log := logger.G(ctx).WithField("run_id", report.RunID)
	log.WithField("skills", len(all)).Debug("starting lint run")

	var perSkill []Rule
	var setRules []SetRule
	for _, r := range l.Rules() {
		if sr, ok := r.(SetRule); ok {
			setRules = append(setRules, sr)
			continue
		}
		perSkill = append(perSkill, r)
	}

	results := make([][]Finding, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, s := range all {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.checkSkill(gctx, s, perSkill)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		telemetry.Finish(span, err)
		return nil, errors.Wrap(err, "lint run cancelled")
	}

	for _, f := range extra {
		if l.Enabled(f.Rule) {
			report.Findings = append(report.Findings, l.apply(f))
		}
	}
	for i, s := range all {
		report.Skills = append(report.Skills, SkillLabel(s))
		for _, f := range results[i] {
			report.Findings = append(report.Findings, l.apply(f))
		}
	}
	for _, r := range setRules {
		for _, f := range r.CheckAll(ctx, all) {
			report.Findings = append(report.Findings, l.apply(f))
		}
	}

	report.finalize(time.Since(report.StartedAt))
	span.SetAttributes(
		attribute.Int("lint.skills", len(report.Skills)),
		attribute.Int("lint.errors", report.Errors),
		attribute.Int("lint.warnings", report.Warnings),
	)
	telemetry.Finish(span, nil)

	log.WithField("findings", len(report.Findings)).WithField("duration", report.Duration).Debug("lint run finished")
	return report, nil
}

func (l *Linter) checkSkill(ctx context.Context, s *skills.Skill, rules []Rule) []Finding {
	ctx, span := telemetry.Start(ctx, "lint.skill", telemetry.SkillAttributes(SkillLabel(s), s.Path)...)
	defer span.End()

	var findings []Finding
	for _, r := range rules {
		if ctx.Err() != nil {
			break
		}
		findings = append(findings, r.Check(ctx, s)...)
	}
	span.SetAttributes(attribute.Int("lint.findings", len(findings)))
	return findings
}

// apply sets the effective severity of a finding.
func (l *Linter) apply(f Finding) Finding {
	if r, ok := l.ruleByID(f.Rule); ok {
		f.Severity = l.Severity(r)
	}
	return f
}

func (l *Linter) ruleByID(id string) (Rule, bool) {
	for _, r := range l.rules {
		if r.ID() == id {
			return r, true
		}
	}
	if r, ok := LookupRule(id); ok {
		return r, true
	}
	return nil, false
}
