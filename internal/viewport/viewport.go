package viewport

import (
	"math"
	"sort"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/tracestore"
)

// DefaultFrameDuration is the refresh period the selector overlay draws
// guides for.
const DefaultFrameDuration = 1.0 / 90

type (
	Range struct {
		Lo float64 `json:"lo"`
		Hi float64 `json:"hi"`
	}

	ThreadView struct {
		ThreadName string              `json:"thread_name"`
		Intervals  []interval.Interval `json:"intervals"`
	}

	// Querier selects the intervals of a collection overlapping a range.
	// Threads with many intervals are served by an Index.
	Querier struct {
		collection *tracestore.Collection
		indexes    []*Index
	}
)

func (r Range) Width() float64 {
	return r.Hi - r.Lo
}

func (r Range) Mid() float64 {
	return (r.Lo + r.Hi) / 2
}

// Clamp orders the bounds and moves them into [lo, hi].
func (r Range) Clamp(lo, hi float64) Range {
	if r.Lo > r.Hi {
		r.Lo, r.Hi = r.Hi, r.Lo
	}
	return Range{
		Lo: math.Min(math.Max(r.Lo, lo), hi),
		Hi: math.Min(math.Max(r.Hi, lo), hi),
	}
}

// Filter returns the intervals overlapping r, bounds included, in their
// stored order.
func Filter(intervals []interval.Interval, r Range) []interval.Interval {
	out := make([]interval.Interval, 0)
	for _, iv := range intervals {
		if iv.Overlaps(r.Lo, r.Hi) {
			out = append(out, iv)
		}
	}
	return out
}

// Query filters every thread of the collection. Every thread gets an entry,
// even when no interval overlaps the range.
func Query(c *tracestore.Collection, r Range) []ThreadView {
	return NewQuerier(c, 0).Run(r)
}

// NewQuerier indexes the threads holding at least threshold intervals. A
// threshold of 0 disables indexing.
func NewQuerier(c *tracestore.Collection, threshold int) *Querier {
	q := &Querier{
		collection: c,
		indexes:    make([]*Index, len(c.Threads)),
	}
	if threshold <= 0 {
		return q
	}
	for i, t := range c.Threads {
		if len(t.Intervals) >= threshold {
			q.indexes[i] = NewIndex(t.Intervals)
		}
	}
	return q
}

func (q *Querier) Bounds() Range {
	return Range{Lo: 0, Hi: q.collection.TimestampMax}
}

func (q *Querier) Run(r Range) []ThreadView {
	views := make([]ThreadView, 0, len(q.collection.Threads))
	for i, t := range q.collection.Threads {
		var intervals []interval.Interval
		if ix := q.indexes[i]; ix != nil {
			intervals = ix.Filter(r)
		} else {
			intervals = Filter(t.Intervals, r)
		}
		views = append(views, ThreadView{
			ThreadName: t.Name,
			Intervals:  intervals,
		})
	}
	return views
}

// FrameGuides returns the start of every frame period overlapping r.
func FrameGuides(r Range, frame float64) []float64 {
	if frame <= 0 || r.Hi < r.Lo {
		return nil
	}
	first := math.Floor(r.Lo / frame)
	last := math.Floor(r.Hi / frame)
	guides := make([]float64, 0, int(last-first)+1)
	for n := first; n <= last; n++ {
		guides = append(guides, n*frame)
	}
	return guides
}

func sortedIndices(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
