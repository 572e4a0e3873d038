package state

import (
	"sort"
	"sync"
	"time"

	"FxSentinel/internal/model"
	"FxSentinel/internal/strategy"
)

// entry pairs an engine with the lock that serialises its analyses.
type entry struct {
	mu     sync.Mutex
	engine *strategy.Engine
}

// Table holds one engine per tracked instrument with concurrency safety.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*entry
	opts    []strategy.Option
}

// NewTable creates an empty table. opts are applied to every engine it creates.
func NewTable(opts ...strategy.Option) *Table {
	return &Table{
		entries: make(map[string]*entry),
		opts:    opts,
	}
}

// Observe runs one analysis for the instrument, creating its engine on first use,
// and returns the resulting snapshot.
func (t *Table) Observe(instrument string, hourly, fiveMin []model.Bar, at time.Time) model.SignalState {
	e := t.getOrCreate(instrument)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Analyze(hourly, fiveMin, at)
}

// Snapshot returns a copy of the instrument's state.
func (t *Table) Snapshot(instrument string) (model.SignalState, bool) {
	t.mu.RLock()
	e, ok := t.entries[instrument]
	t.mu.RUnlock()
	if !ok {
		return model.SignalState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Snapshot(), true
}

// Snapshots returns copies of every tracked instrument's state, sorted by instrument.
func (t *Table) Snapshots() []model.SignalState {
	names := t.Instruments()
	out := make([]model.SignalState, 0, len(names))
	for _, name := range names {
		if s, ok := t.Snapshot(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// Instruments returns the tracked instrument ids in sorted order.
func (t *Table) Instruments() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evict drops the instrument's state. It reports whether the instrument was tracked.
func (t *Table) Evict(instrument string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[instrument]; !ok {
		return false
	}
	delete(t.entries, instrument)
	return true
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Table) getOrCreate(instrument string) *entry {
	t.mu.RLock()
	e, ok := t.entries[instrument]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[instrument]; ok {
		return e
	}
	e = &entry{engine: strategy.NewEngine(instrument, t.opts...)}
	t.entries[instrument] = e
	return e
}
