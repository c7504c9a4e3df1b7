package viewport

import (
	"math"

	"github.com/toberndo/go-stree/stree"

	"github.com/libut/utview/internal/interval"
)

type (
	segment [2]int

	// Index answers range queries over a thread's intervals with a segment
	// tree on nanosecond bounds. The tree only narrows the candidates: the
	// exact predicate is applied on the stored float bounds.
	Index struct {
		intervals []interval.Interval
		tree      stree.Tree
		segments  map[segment][]int
	}
)

func nanoseconds(seconds float64, round func(float64) float64) int {
	return int(round(seconds * 1e9))
}

func NewIndex(intervals []interval.Interval) *Index {
	ix := &Index{
		intervals: intervals,
		segments:  make(map[segment][]int, len(intervals)),
	}
	if len(intervals) == 0 {
		return ix
	}
	ix.tree = stree.NewTree()
	for i, iv := range intervals {
		s := segment{
			nanoseconds(iv.StartTime, math.Floor),
			nanoseconds(iv.EndTime, math.Ceil),
		}
		if _, exists := ix.segments[s]; !exists {
			ix.tree.Push(s[0], s[1])
		}
		ix.segments[s] = append(ix.segments[s], i)
	}
	ix.tree.BuildTree()
	return ix
}

func (ix *Index) Len() int {
	return len(ix.intervals)
}

func (ix *Index) Filter(r Range) []interval.Interval {
	out := make([]interval.Interval, 0)
	if len(ix.intervals) == 0 {
		return out
	}
	candidates := ix.tree.Query(
		nanoseconds(r.Lo, math.Floor)-1,
		nanoseconds(r.Hi, math.Ceil)+1,
	)
	matches := make(map[int]struct{}, len(candidates))
	for _, c := range candidates {
		for _, i := range ix.segments[segment{c.Segment.From, c.Segment.To}] {
			if ix.intervals[i].Overlaps(r.Lo, r.Hi) {
				matches[i] = struct{}{}
			}
		}
	}
	for _, i := range sortedIndices(matches) {
		out = append(out, ix.intervals[i])
	}
	return out
}
