package tracestore

import (
	"errors"
	"testing"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/task"
	"github.com/libut/utview/internal/testutil"
	"github.com/libut/utview/internal/tracefile"
)

func push(ts float64, depth, id uint) tracefile.Sample {
	return tracefile.Sample{Kind: tracefile.PushKind, Timestamp: ts, StackDepth: depth, Task: id}
}

func pop(ts float64, depth, id uint) tracefile.Sample {
	return tracefile.Sample{Kind: tracefile.PopKind, Timestamp: ts, StackDepth: depth, Task: id}
}

func fixture() []tracefile.Thread {
	return []tracefile.Thread{
		{
			Type:        tracefile.ThreadRecord,
			ProcessName: "game",
			Name:        "main",
			Samples: []tracefile.Sample{
				push(0, 0, 1),
				push(1, 1, 2),
				pop(2, 1, 2),
				pop(3, 0, 1),
				push(4, 0, 1),
				pop(6, 0, 1),
			},
			Ancillary: []tracefile.AncillaryRecord{
				{Type: tracefile.TaskDescRecord, Index: 1, Name: "frame"},
				{Type: tracefile.TaskDescRecord, Index: 2, Name: "render"},
			},
		},
		{
			Type:        tracefile.ThreadRecord,
			ProcessName: "game",
			Name:        "idle",
		},
		{
			Type:        tracefile.ThreadRecord,
			ProcessName: "game",
			Name:        "audio",
			Samples: []tracefile.Sample{
				push(0.5, 0, 3),
				pop(1.5, 0, 3),
			},
		},
	}
}

func TestLoad(t *testing.T) {
	c := Load(fixture(), Options{Workers: 2})

	want := Summary{
		Threads: []ThreadSummary{
			{Name: "main", Intervals: 3, TimeMin: 0, TimeMax: 6},
			{Name: "audio", Intervals: 1, TimeMin: 0.5, TimeMax: 1.5},
		},
		TimestampMax: 6,
		Intervals:    4,
	}
	if diff := testutil.Diff(c.Summary(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	main, ok := c.Thread("main")
	if !ok {
		t.Fatal("expected thread main")
	}
	wantIntervals := []interval.Interval{
		{StartTime: 1, EndTime: 2, StackDepth: 1, Task: task.NewDescriptor("render")},
		{StartTime: 0, EndTime: 3, StackDepth: 0, Task: task.NewDescriptor("frame")},
		{StartTime: 4, EndTime: 6, StackDepth: 0, Task: task.NewDescriptor("frame")},
	}
	if diff := testutil.Diff(main.Intervals, wantIntervals); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	audio, _ := c.Thread("audio")
	if audio.Intervals[0].Task != task.Unknown {
		t.Fatalf("expected the unknown task, got %+v", audio.Intervals[0].Task)
	}
	if _, ok := c.Thread("idle"); ok {
		t.Fatal("expected thread idle to be skipped")
	}
}

func TestLoadThreadFilter(t *testing.T) {
	c := Load(fixture(), Options{Threads: []string{"audio", "missing"}})
	if len(c.Threads) != 1 || c.Threads[0].Name != "audio" {
		t.Fatalf("expected only thread audio, got %+v", c.Summary())
	}
	if c.TimestampMax != 1.5 {
		t.Fatalf("expected timestamp max 1.5, got %v", c.TimestampMax)
	}
}

func TestSelectThreads(t *testing.T) {
	threads := []tracefile.Thread{
		{Name: "main", Samples: []tracefile.Sample{push(0, 0, 1)}},
		{Name: "idle"},
		{Name: "audio", Samples: []tracefile.Sample{push(0, 0, 1)}},
	}
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{name: "threads without samples are never reconstructed", want: []string{"main", "audio"}},
		{name: "filter", names: []string{"audio", "idle"}, want: []string{"audio"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got []string
			for _, rt := range selectThreads(threads, test.names) {
				got = append(got, rt.Name)
			}
			if diff := testutil.Diff(got, test.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestLoadKeepsAnomalies(t *testing.T) {
	c := Load([]tracefile.Thread{
		{
			Name: "main",
			Samples: []tracefile.Sample{
				push(1, 0, 1),
				push(2, 0, 2),
				pop(3, 0, 1),
			},
		},
	}, Options{})
	if got := c.Summary().Anomalies; got != 1 {
		t.Fatalf("expected 1 anomaly, got %d", got)
	}
	if c.Threads[0].Anomalies[0].Kind != interval.UnbalancedPush {
		t.Fatalf("unexpected anomaly: %+v", c.Threads[0].Anomalies[0])
	}
}

func TestTrim(t *testing.T) {
	c := Load(fixture(), Options{})
	if err := c.Trim(1.75); err != nil {
		t.Fatalf("trim error: %v", err)
	}

	want := Summary{
		Threads: []ThreadSummary{
			{Name: "main", Intervals: 3, TimeMin: -1.75, TimeMax: 4.25},
		},
		TimestampMax: 4.25,
		Intervals:    3,
		Cutoff:       1.75,
	}
	if diff := testutil.Diff(c.Summary(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	main, _ := c.Thread("main")
	if main.Intervals[0].StartTime != -0.75 || main.Intervals[0].EndTime != 0.25 {
		t.Fatalf("expected the straddling interval to be rebased, got %+v", main.Intervals[0])
	}
}

func TestTrimOnce(t *testing.T) {
	c := Load(fixture(), Options{})
	if err := c.Trim(0.5); err != nil {
		t.Fatalf("trim error: %v", err)
	}
	if err := c.Trim(0.5); !errors.Is(err, ErrAlreadyTrimmed) {
		t.Fatalf("expected ErrAlreadyTrimmed, got %v", err)
	}
}

func TestTrimInvalidCutoff(t *testing.T) {
	c := Load(fixture(), Options{})
	if err := c.Trim(-1); !errors.Is(err, ErrInvalidCutoff) {
		t.Fatalf("expected ErrInvalidCutoff, got %v", err)
	}
	if c.Trimmed {
		t.Fatal("expected the collection to stay untrimmed")
	}
}

func TestTrimMatchesShiftedFilter(t *testing.T) {
	const cutoff, lo, hi = 2.5, 0.25, 1.0

	names := func(intervals []interval.Interval, lo, hi float64) []string {
		var out []string
		for _, iv := range intervals {
			if iv.Overlaps(lo, hi) {
				out = append(out, iv.Task.Name)
			}
		}
		return out
	}

	untrimmed := Load(fixture(), Options{})
	want := names(untrimmed.Threads[0].Intervals, lo+cutoff, hi+cutoff)

	trimmed := Load(fixture(), Options{})
	if err := trimmed.Trim(cutoff); err != nil {
		t.Fatalf("trim error: %v", err)
	}
	got := names(trimmed.Threads[0].Intervals, lo, hi)

	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestTrimToWindow(t *testing.T) {
	tests := []struct {
		name        string
		window      float64
		wantTrimmed bool
		wantMax     float64
	}{
		{name: "disabled", window: 0, wantTrimmed: false, wantMax: 6},
		{name: "wider than the trace", window: 10, wantTrimmed: false, wantMax: 6},
		{name: "last two seconds", window: 2, wantTrimmed: true, wantMax: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := Load(fixture(), Options{})
			trimmed, err := c.TrimToWindow(test.window)
			if err != nil {
				t.Fatalf("trim error: %v", err)
			}
			if trimmed != test.wantTrimmed {
				t.Fatalf("expected trimmed %v, got %v", test.wantTrimmed, trimmed)
			}
			if c.TimestampMax != test.wantMax {
				t.Fatalf("expected timestamp max %v, got %v", test.wantMax, c.TimestampMax)
			}
		})
	}
}
