// Package watch re-lints skills as their files change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

// DefaultDebounce is the quiet period before a changed skill is re-linted.
const DefaultDebounce = 300 * time.Millisecond

// Result is the outcome of one lint triggered by the watcher.
type Result struct {
	// Full is set when every root was re-linted.
	Full bool
	// SkillDir is the re-linted skill when Full is false.
	SkillDir string
	// Paths are the changed files that triggered the run; empty for the
	// initial lint.
	Paths  []string
	Report *lint.Report
	Err    error
}

// Handler receives lint results. It is called from a single goroutine.
type Handler func(context.Context, Result)

// Watcher watches skill roots and re-lints on change.
type Watcher struct {
	linter   *lint.Linter
	roots    []string
	scan     skills.ScanOptions
	debounce time.Duration
	handler  Handler
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero or negative uses DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithScanOptions sets how roots are scanned.
func WithScanOptions(opts skills.ScanOptions) Option {
	return func(w *Watcher) { w.scan = opts }
}

// WithHandler sets the result callback.
func WithHandler(h Handler) Option {
	return func(w *Watcher) { w.handler = h }
}

// New creates a Watcher over roots.
func New(linter *lint.Linter, roots []string, opts ...Option) (*Watcher, error) {
	if linter == nil {
		return nil, errors.New("linter is required")
	}
	if len(roots) == 0 {
		return nil, errors.New("at least one root is required")
	}

	w := &Watcher{linter: linter, debounce: DefaultDebounce, handler: logResult}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", root)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", root)
		}
		if !info.IsDir() {
			return nil, errors.Errorf("%s is not a directory", root)
		}
		w.roots = append(w.roots, abs)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run lints every root once, then re-lints on change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fw.Close()

	for _, root := range w.roots {
		if err := w.addTree(ctx, fw, root); err != nil {
			return err
		}
	}
	logger.G(ctx).WithField("roots", w.roots).Info("watching skills for changes")

	w.lint(ctx, batch{Key: fullKey})

	batches := make(chan batch)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.collect(gctx, fw, batches) })
	g.Go(func() error {
		for {
			select {
			case b := <-batches:
				w.lint(gctx, b)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// addTree registers dir and every directory below it that a scan visits.
func (w *Watcher) addTree(ctx context.Context, fw *fsnotify.Watcher, dir string) error {
	root, _, ok := w.locate(dir)
	if !ok {
		return nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if w.scan.Skips(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return fw.Add(path)
	})
	return errors.Wrapf(err, "failed to watch %s", dir)
}

func (w *Watcher) collect(ctx context.Context, fw *fsnotify.Watcher, out chan<- batch) error {
	deb := newDebouncer(w.debounce)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	rearm := func() {
		timer.Stop()
		if next, ok := deb.next(); ok {
			timer.Reset(time.Until(next))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			key, ok := w.target(ctx, fw, event)
			if !ok {
				continue
			}
			logger.G(ctx).WithField("file", event.Name).WithField("op", event.Op.String()).Debug("skill change detected")
			deb.add(key, event.Name, time.Now())
			rearm()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("error watching files")

		case <-timer.C:
			for _, b := range deb.due(time.Now()) {
				select {
				case out <- b:
				case <-ctx.Done():
					return nil
				}
			}
			rearm()
		}
	}
}

// target maps a file system event to the skill it affects. ok is false for
// events that cannot change lint results.
func (w *Watcher) target(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}

	root, rel, ok := w.locate(event.Name)
	if !ok || rel == "." {
		return "", false
	}
	if w.scan.Skips(filepath.ToSlash(filepath.Dir(rel))) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.scan.Skips(filepath.ToSlash(rel)) {
				return "", false
			}
			if err := w.addTree(ctx, fw, event.Name); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to watch new directory")
			}
			return fullKey, true
		}
	}

	if base == skills.SkillFileName && event.Has(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
		return fullKey, true
	}

	dir := findSkillDir(filepath.Dir(event.Name), root)
	if dir == "" {
		if event.Has(fsnotify.Remove | fsnotify.Rename) {
			return fullKey, true
		}
		return "", false
	}
	return dir, true
}

// locate returns the watched root holding path and path relative to it.
func (w *Watcher) locate(path string) (string, string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return root, rel, true
	}
	return "", "", false
}

// findSkillDir walks up from dir to root and returns the nearest directory
// holding a SKILL.md.
func findSkillDir(dir, root string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, skills.SkillFileName)); err == nil {
			return dir
		}
		if dir == root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (w *Watcher) lint(ctx context.Context, b batch) {
	res := Result{Full: b.full(), Paths: b.Paths}
	roots := w.roots
	if !res.Full {
		res.SkillDir = b.Key
		roots = []string{b.Key}
	}

	telemetry.WithSpanFunc(ctx, "watch.lint", func(ctx context.Context) {
		telemetry.AddEvent(ctx, "files.changed", attribute.StringSlice("paths", b.Paths))
		res.Report, res.Err = w.linter.LintPaths(ctx, roots, w.scan)
	}, attribute.Bool("watch.full", res.Full), attribute.String("watch.skill_dir", res.SkillDir))
	if ctx.Err() != nil {
		return
	}
	w.handler(ctx, res)
}

func logResult(ctx context.Context, res Result) {
	log := logger.G(ctx).WithField("full", res.Full).WithField("skill_dir", res.SkillDir)
	if res.Err != nil {
		log.WithError(res.Err).Error("lint failed")
		return
	}
	log.WithField("errors", res.Report.Errors).
		WithField("warnings", res.Report.Warnings).
		Info("lint finished")
}
