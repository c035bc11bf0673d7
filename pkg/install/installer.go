// Package install copies skills from local directories or GitHub
// repositories into a skill root, gated by the linter, and records their
// provenance in a lock manifest.
package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

const (
	// ConfigDir is the project-level skillkit directory
	ConfigDir    = ".skillkit"
	skillsSubdir = "skills"
)

// Source is where skills are installed from: a local directory or a GitHub
// repository written as owner/repo[@ref].
type Source struct {
	Local string
	Repo  string
	Ref   string
	// Dir restricts the install to a subdirectory of the source.
	Dir string
}

func (s Source) String() string {
	if s.Local != "" {
		return s.Local
	}
	if s.Ref != "" {
		return s.Repo + "@" + s.Ref
	}
	return s.Repo
}

// ParseSource interprets an install argument. Existing directories and
// paths starting with ".", "/" or "~" are local; anything else must be
// owner/repo with an optional @ref.
func ParseSource(arg string) (Source, error) {
	if arg == "" {
		return Source{}, errors.New("source cannot be empty")
	}
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return Source{Local: arg}, nil
	}
	if strings.HasPrefix(arg, ".") || strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "~") {
		return Source{}, errors.Errorf("local source %s is not a directory", arg)
	}

	repo, ref, _ := strings.Cut(arg, "@")
	if err := ValidateRepoName(repo); err != nil {
		return Source{}, err
	}
	return Source{Repo: repo, Ref: ref}, nil
}

// ValidateRepoName validates a GitHub repository name of the form owner/repo.
func ValidateRepoName(repo string) error {
	if repo == "" {
		return errors.New("repository name cannot be empty")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return errors.Errorf("invalid repository format %q: expected 'owner/repo'", repo)
	}
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return errors.Errorf("invalid repository format %q: expected 'owner/repo'", repo)
	}
	return nil
}

// RefusedError is returned when the linter finds errors in the skills to
// install and force is not set.
type RefusedError struct {
	Report *lint.Report
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("refusing to install: %d lint error(s) (use --force to install anyway)", e.Report.Errors)
}

// Installer installs skills into <base>/skills.
type Installer struct {
	global  bool
	force   bool
	baseDir string
	linter  *lint.Linter
	clone   func(ctx context.Context, repo, ref string) (string, error)
	now     func() time.Time
}

// Option configures an Installer instance
type Option func(*Installer)

// WithGlobal installs into ~/.skillkit instead of ./.skillkit
func WithGlobal(global bool) Option {
	return func(i *Installer) {
		i.global = global
	}
}

// WithForce overwrites existing skills and ignores lint errors
func WithForce(force bool) Option {
	return func(i *Installer) {
		i.force = force
	}
}

// WithBaseDir installs below dir instead of the project or user directory.
func WithBaseDir(dir string) Option {
	return func(i *Installer) {
		i.baseDir = dir
	}
}

// WithLinter sets the linter used to vet skills before installing.
func WithLinter(l *lint.Linter) Option {
	return func(i *Installer) {
		i.linter = l
	}
}

// NewInstaller creates a new skill installer
func NewInstaller(opts ...Option) (*Installer, error) {
	i := &Installer{now: time.Now}
	i.clone = i.cloneRepo

	for _, opt := range opts {
		opt(i)
	}

	if i.baseDir == "" {
		base, err := baseDir(i.global)
		if err != nil {
			return nil, err
		}
		i.baseDir = base
	}
	if i.linter == nil {
		l, err := lint.NewLinter()
		if err != nil {
			return nil, err
		}
		i.linter = l
	}

	return i, nil
}

func baseDir(global bool) (string, error) {
	if !global {
		return ConfigDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ConfigDir), nil
}

// SkillsDir is the directory skills are installed into.
func (i *Installer) SkillsDir() string {
	return filepath.Join(i.baseDir, skillsSubdir)
}

// ManifestPath is the lock manifest location.
func (i *Installer) ManifestPath() string {
	return filepath.Join(i.baseDir, ManifestFileName)
}

// InstallResult contains information about installed skills
type InstallResult struct {
	Source string
	Skills []string
	Report *lint.Report
}

// Install vets and copies every skill found in src.
func (i *Installer) Install(ctx context.Context, src Source) (*InstallResult, error) {
	root := src.Local
	if root == "" {
		if err := ValidateRepoName(src.Repo); err != nil {
			return nil, err
		}
		tempDir, err := i.clone(ctx, src.Repo, src.Ref)
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tempDir)
		root = tempDir
	}

	if src.Dir != "" {
		clean := filepath.Clean(src.Dir)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return nil, errors.Errorf("directory %q must be inside the source", src.Dir)
		}
		root = filepath.Join(root, clean)
	}

	found, err := skills.Scan(root, skills.ScanOptions{})
	if loadErrs := skills.LoadErrors(err); err != nil && (loadErrs == nil || !i.force) {
		return nil, errors.Wrapf(err, "failed to load skills from %s", src)
	}
	if len(found) == 0 {
		return nil, errors.Errorf("no skills found in %s", src)
	}

	report, err := i.linter.Lint(ctx, found)
	if err != nil {
		return nil, err
	}
	if report.Failed(lint.SeverityError) && !i.force {
		return nil, &RefusedError{Report: report}
	}

	result := &InstallResult{Source: src.String(), Report: report}
	plan, err := i.planInstall(found)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry)
	for _, p := range plan {
		s, name, dest := p.skill, p.name, p.dest
		if err := i.placeSkill(s.Directory, dest); err != nil {
			return nil, errors.Wrapf(err, "failed to install skill %s", name)
		}

		rel, _ := filepath.Rel(root, s.Directory)
		entries[name] = Entry{
			Source:      sourceLocation(src),
			Ref:         src.Ref,
			Path:        filepath.ToSlash(filepath.Join(src.Dir, rel)),
			InstalledAt: i.now().UTC(),
		}
		result.Skills = append(result.Skills, name)
		logger.G(ctx).WithField("skill", name).WithField("dest", dest).Debug("installed skill")
	}

	err = UpdateManifest(i.ManifestPath(), func(m *Manifest) error {
		for name, e := range entries {
			m.Skills[name] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.Skills)
	return result, nil
}

// installName is the declared name when it is valid, otherwise the
// directory name.
func installName(s *skills.Skill) string {
	name := strings.TrimSpace(s.Frontmatter.Name)
	if skills.ValidateName(name) == nil {
		return name
	}
	return filepath.Base(s.Directory)
}

func sourceLocation(src Source) string {
	if src.Local == "" {
		return "github.com/" + src.Repo
	}
	if abs, err := filepath.Abs(src.Local); err == nil {
		return abs
	}
	return src.Local
}

// ValidateGHCLI checks that the GitHub CLI is available.
func ValidateGHCLI() error {
	if _, err := exec.LookPath("gh"); err != nil {
		return errors.New("gh CLI is required to install from GitHub; see https://cli.github.com")
	}
	return nil
}

const (
	cloneAttempts = 3
	cloneDelay    = time.Second
)

// permanentCloneFailures are gh messages that retrying will not fix.
var permanentCloneFailures = []string{
	"Could not resolve to a Repository",
	"not found",
	"Remote branch",
	"authentication",
}

type cloneError struct {
	err    error
	output string
}

func (e *cloneError) Error() string {
	return fmt.Sprintf("%v: %s", e.err, strings.TrimSpace(e.output))
}

func retryableClone(err error) bool {
	var ce *cloneError
	if !errors.As(err, &ce) {
		return false
	}
	for _, msg := range permanentCloneFailures {
		if strings.Contains(ce.output, msg) {
			return false
		}
	}
	return true
}

func (i *Installer) cloneRepo(ctx context.Context, repo, ref string) (string, error) {
	if err := ValidateGHCLI(); err != nil {
		return "", err
	}

	args := []string{"repo", "clone", repo}
	var tempDir string
	err := retry.Do(
		func() error {
			dir, err := os.MkdirTemp("", "skillkit-install-*")
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "failed to create temp directory"))
			}

			cloneArgs := append(append([]string{}, args...), dir, "--", "--depth", "1")
			if ref != "" {
				cloneArgs = append(cloneArgs, "--branch", ref)
			}
			output, err := exec.CommandContext(ctx, "gh", cloneArgs...).CombinedOutput()
			if err != nil {
				os.RemoveAll(dir)
				return &cloneError{err: err, output: string(output)}
			}
			tempDir = dir
			return nil
		},
		retry.RetryIf(retryableClone),
		retry.Attempts(cloneAttempts),
		retry.Delay(cloneDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("repo", repo).Warn("retrying repository clone")
		}),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to clone repository")
	}

	return tempDir, nil
}

type plannedSkill struct {
	skill *skills.Skill
	name  string
	dest  string
}

// planInstall maps every found skill to its destination and refuses the
// whole install before anything is written when two skills share an
// install name, a destination exists without --force, or a source already
// lives at its destination.
func (i *Installer) planInstall(found []*skills.Skill) ([]plannedSkill, error) {
	plan := make([]plannedSkill, 0, len(found))
	byName := make(map[string]string, len(found))

	for _, s := range found {
		name := installName(s)
		if other, ok := byName[name]; ok {
			return nil, errors.Errorf("skills at %s and %s both install as %q", other, s.Directory, name)
		}
		byName[name] = s.Directory

		dest := filepath.Join(i.SkillsDir(), name)
		srcPath, destPath := resolvePath(s.Directory), resolvePath(dest)
		if srcPath == destPath {
			return nil, errors.Errorf("skill %s is already installed at %s", s.Directory, dest)
		}
		if isWithin(srcPath, destPath) || isWithin(destPath, srcPath) {
			return nil, errors.Errorf("skill %s overlaps its install destination %s", s.Directory, dest)
		}
		if err := i.checkExisting(dest); err != nil {
			return nil, err
		}
		plan = append(plan, plannedSkill{skill: s, name: name, dest: dest})
	}
	return plan, nil
}

func (i *Installer) checkExisting(path string) error {
	if _, err := os.Stat(path); err == nil && !i.force {
		return errors.Errorf("skill already exists at %s (use --force to overwrite)", path)
	}
	return nil
}

// placeSkill copies src into a hidden staging directory next to dest and
// only then swaps it in, so a failed copy never costs the installed skill.
func (i *Installer) placeSkill(src, dest string) error {
	if err := os.MkdirAll(i.SkillsDir(), 0o755); err != nil {
		return errors.Wrap(err, "failed to create skills directory")
	}
	staging, err := os.MkdirTemp(i.SkillsDir(), ".install-")
	if err != nil {
		return errors.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, "skill")
	if err := copyDir(src, staged); err != nil {
		return err
	}

	previous := ""
	if _, err := os.Stat(dest); err == nil {
		previous = filepath.Join(staging, "previous")
		if err := os.Rename(dest, previous); err != nil {
			return errors.Wrap(err, "failed to move existing skill aside")
		}
	}
	if err := os.Rename(staged, dest); err != nil {
		if previous != "" {
			os.Rename(previous, dest)
		}
		return errors.Wrap(err, "failed to move skill into place")
	}
	return nil
}

func resolvePath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	// Resolve the parent so a missing leaf still compares against real paths.
	if parent, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(parent, filepath.Base(p))
	}
	return filepath.Clean(p)
}

func isWithin(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// copyDir copies src to dst, skipping .git.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}

		destPath := filepath.Join(dst, relPath)
		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, destPath, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// Remover handles skill removal
type Remover struct {
	baseDir string
}

// NewRemover creates a remover for the project directory, or the user
// directory when global is set.
func NewRemover(global bool) (*Remover, error) {
	base, err := baseDir(global)
	if err != nil {
		return nil, err
	}
	return &Remover{baseDir: base}, nil
}

// NewRemoverAt creates a remover rooted at dir.
func NewRemoverAt(dir string) *Remover {
	return &Remover{baseDir: dir}
}

// Remove deletes an installed skill and its manifest entry.
func (r *Remover) Remove(name string) error {
	if err := skills.ValidateName(name); err != nil {
		return errors.Wrap(err, "invalid skill name")
	}

	skillPath := filepath.Join(r.baseDir, skillsSubdir, name)
	if _, err := os.Stat(skillPath); os.IsNotExist(err) {
		return errors.Errorf("skill '%s' not found", name)
	}
	if err := os.RemoveAll(skillPath); err != nil {
		return errors.Wrap(err, "failed to remove skill")
	}

	return UpdateManifest(filepath.Join(r.baseDir, ManifestFileName), func(m *Manifest) error {
		delete(m.Skills, name)
		return nil
	})
}

// InstalledSkill is a skill directory under the install root together with
// its manifest entry, when it has one.
type InstalledSkill struct {
	Name  string
	Entry *Entry
}

// List returns the installed skills sorted by name.
func (r *Remover) List() ([]InstalledSkill, error) {
	entries, err := os.ReadDir(filepath.Join(r.baseDir, skillsSubdir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read skills directory")
	}

	m, err := ReadManifest(filepath.Join(r.baseDir, ManifestFileName))
	if err != nil {
		return nil, err
	}

	var out []InstalledSkill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.baseDir, skillsSubdir, entry.Name(), skills.SkillFileName)); err != nil {
			continue
		}
		s := InstalledSkill{Name: entry.Name()}
		if e, ok := m.Skills[entry.Name()]; ok {
			s.Entry = &e
		}
		out = append(out, s)
	}
	return out, nil
}
