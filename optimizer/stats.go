package optimizer

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Event names one kind of rewrite a rule performed.
type Event string

const (
	SortAdded          Event = "sorts_added"
	SortRemoved        Event = "sorts_removed"
	MergeAdded         Event = "merges_added"
	MergeRemoved       Event = "merges_removed"
	CoalesceRemoved    Event = "coalesces_removed"
	WindowRewritten    Event = "windows_rewritten"
	VariantSubstituted Event = "variants_substituted"
	SortPushedDown     Event = "sorts_pushed_down"
)

// RuleStats counts rewrite events. It is safe for concurrent use, so one
// instance can be shared by optimizer runs on several goroutines.
type RuleStats struct {
	counters *xsync.MapOf[Event, *xsync.Counter]
}

func NewRuleStats() *RuleStats {
	return &RuleStats{counters: xsync.NewMapOf[Event, *xsync.Counter]()}
}

func (s *RuleStats) Inc(e Event) {
	c, _ := s.counters.LoadOrCompute(e, func() *xsync.Counter {
		return xsync.NewCounter()
	})
	c.Inc()
}

// Get returns how many times e was recorded.
func (s *RuleStats) Get(e Event) int64 {
	c, ok := s.counters.Load(e)
	if !ok {
		return 0
	}
	return c.Value()
}

// EventCount is one row of a Snapshot.
type EventCount struct {
	Event Event
	Count int64
}

// Snapshot returns every recorded event, sorted by name.
func (s *RuleStats) Snapshot() []EventCount {
	var out []EventCount
	s.counters.Range(func(e Event, c *xsync.Counter) bool {
		out = append(out, EventCount{Event: e, Count: c.Value()})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

func (s *RuleStats) Reset() {
	s.counters.Clear()
}
