package watch

import (
	"sort"
	"time"
)

// fullKey marks a batch that re-lints every root.
const fullKey = ""

// batch is a set of changes settled on one lint target: a skill directory,
// or fullKey for all roots.
type batch struct {
	Key   string
	Paths []string
}

func (b batch) full() bool { return b.Key == fullKey }

type pendingTarget struct {
	deadline time.Time
	paths    map[string]bool
}

// debouncer coalesces changes per target. Each new change to a target
// pushes its deadline back by delay. It is not safe for concurrent use.
type debouncer struct {
	delay   time.Duration
	pending map[string]*pendingTarget
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*pendingTarget)}
}

func (d *debouncer) add(key, path string, now time.Time) {
	p, ok := d.pending[key]
	if !ok {
		p = &pendingTarget{paths: make(map[string]bool)}
		d.pending[key] = p
	}
	p.deadline = now.Add(d.delay)
	p.paths[path] = true
}

// next returns the earliest pending deadline.
func (d *debouncer) next() (time.Time, bool) {
	var earliest time.Time
	for _, p := range d.pending {
		if earliest.IsZero() || p.deadline.Before(earliest) {
			earliest = p.deadline
		}
	}
	return earliest, !earliest.IsZero()
}

// due removes and returns the targets whose deadline has passed. A due full
// target absorbs every other pending target.
func (d *debouncer) due(now time.Time) []batch {
	if p, ok := d.pending[fullKey]; ok && !p.deadline.After(now) {
		paths := make(map[string]bool)
		for _, pt := range d.pending {
			for path := range pt.paths {
				paths[path] = true
			}
		}
		d.pending = make(map[string]*pendingTarget)
		return []batch{{Key: fullKey, Paths: sortedKeys(paths)}}
	}

	var out []batch
	for key, p := range d.pending {
		if p.deadline.After(now) {
			continue
		}
		out = append(out, batch{Key: key, Paths: sortedKeys(p.paths)})
		delete(d.pending, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
