package viewport

import (
	"math/rand"
	"testing"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/task"
	"github.com/libut/utview/internal/testutil"
	"github.com/libut/utview/internal/tracestore"
)

var (
	taskA = task.NewDescriptor("A")
	taskB = task.NewDescriptor("B")
)

func collection() *tracestore.Collection {
	return &tracestore.Collection{
		Threads: []*tracestore.Thread{
			{
				Name: "main",
				Intervals: []interval.Interval{
					{StartTime: 1, EndTime: 2, StackDepth: 1, Task: taskB},
					{StartTime: 0, EndTime: 3, StackDepth: 0, Task: taskA},
					{StartTime: 4, EndTime: 6, StackDepth: 0, Task: taskA},
				},
				TimeMin: 0,
				TimeMax: 6,
			},
			{
				Name: "audio",
				Intervals: []interval.Interval{
					{StartTime: 7, EndTime: 8, StackDepth: 0, Task: taskB},
				},
				TimeMin: 7,
				TimeMax: 8,
			},
		},
		TimestampMax: 8,
	}
}

func TestFilter(t *testing.T) {
	intervals := collection().Threads[0].Intervals
	tests := []struct {
		name string
		r    Range
		want []interval.Interval
	}{
		{
			name: "inclusive end",
			r:    Range{Lo: 3, Hi: 3.5},
			want: []interval.Interval{intervals[1]},
		},
		{
			name: "inclusive start",
			r:    Range{Lo: 3.5, Hi: 4},
			want: []interval.Interval{intervals[2]},
		},
		{
			name: "stored order",
			r:    Range{Lo: 0, Hi: 10},
			want: intervals,
		},
		{
			name: "nothing visible",
			r:    Range{Lo: 3.25, Hi: 3.75},
			want: []interval.Interval{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Filter(intervals, test.r)
			if diff := testutil.Diff(got, test.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	c := collection()
	got := Query(c, Range{Lo: 2.5, Hi: 4.5})
	want := []ThreadView{
		{
			ThreadName: "main",
			Intervals: []interval.Interval{
				c.Threads[0].Intervals[1],
				c.Threads[0].Intervals[2],
			},
		},
		{
			ThreadName: "audio",
			Intervals:  []interval.Interval{},
		},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func randomIntervals(r *rand.Rand, n int) []interval.Interval {
	intervals := make([]interval.Interval, 0, n)
	for i := 0; i < n; i++ {
		start := r.Float64() * 10
		end := start
		// keep a few zero length intervals
		if r.Intn(10) > 0 {
			end += r.Float64() * 0.5
		}
		intervals = append(intervals, interval.Interval{
			StartTime:  start,
			EndTime:    end,
			StackDepth: uint(r.Intn(4)),
			Task:       taskA,
		})
	}
	return intervals
}

func TestIndexMatchesFilter(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	intervals := randomIntervals(r, 2000)
	ix := NewIndex(intervals)

	ranges := []Range{
		{Lo: 0, Hi: 10},
		{Lo: 5, Hi: 5},
		{Lo: intervals[0].StartTime, Hi: intervals[0].StartTime},
		{Lo: intervals[1].EndTime, Hi: intervals[1].EndTime + 1e-10},
		{Lo: 11, Hi: 12},
	}
	for i := 0; i < 50; i++ {
		lo := r.Float64() * 10
		ranges = append(ranges, Range{Lo: lo, Hi: lo + r.Float64()})
	}

	for _, rg := range ranges {
		want := Filter(intervals, rg)
		got := ix.Filter(rg)
		if diff := testutil.Diff(got, want); diff != "" {
			t.Fatalf("Result mismatch for %+v: got - want +\n%s", rg, diff)
		}
	}
}

func TestIndexEmpty(t *testing.T) {
	ix := NewIndex(nil)
	if got := ix.Filter(Range{Lo: 0, Hi: 1}); len(got) != 0 {
		t.Fatalf("expected no intervals, got %+v", got)
	}
}

func TestQuerierUsesIndex(t *testing.T) {
	c := collection()
	q := NewQuerier(c, 2)
	if q.indexes[0] == nil || q.indexes[1] != nil {
		t.Fatalf("expected only the first thread to be indexed")
	}
	rg := Range{Lo: 1.5, Hi: 7}
	if diff := testutil.Diff(q.Run(rg), Query(c, rg)); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want Range
	}{
		{name: "inside", r: Range{Lo: 1, Hi: 2}, want: Range{Lo: 1, Hi: 2}},
		{name: "below", r: Range{Lo: -1, Hi: 2}, want: Range{Lo: 0, Hi: 2}},
		{name: "above", r: Range{Lo: 7, Hi: 9}, want: Range{Lo: 7, Hi: 8}},
		{name: "outside", r: Range{Lo: 9, Hi: 12}, want: Range{Lo: 8, Hi: 8}},
		{name: "inverted", r: Range{Lo: 5, Hi: 3}, want: Range{Lo: 3, Hi: 5}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.r.Clamp(0, 8); got != test.want {
				t.Fatalf("expected %+v, got %+v", test.want, got)
			}
		})
	}
}

func TestFrameGuides(t *testing.T) {
	got := FrameGuides(Range{Lo: 0.25, Hi: 1}, 0.25)
	want := []float64{0.25, 0.5, 0.75, 1}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	got = FrameGuides(Range{Lo: 0.3, Hi: 0.4}, 0.25)
	want = []float64{0.25}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if n := len(FrameGuides(Range{Lo: 0, Hi: 1}, DefaultFrameDuration)); n < 90 || n > 91 {
		t.Fatalf("expected about 90 guides per second, got %d", n)
	}
	if got := FrameGuides(Range{Lo: 0, Hi: 1}, 0); got != nil {
		t.Fatalf("expected no guides without a frame duration, got %v", got)
	}
}
