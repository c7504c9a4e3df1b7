package speedscope

import (
	"testing"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/task"
	"github.com/libut/utview/internal/testutil"
	"github.com/libut/utview/internal/tracestore"
)

func TestFromCollection(t *testing.T) {
	frame := task.NewDescriptor("frame")
	render := task.NewDescriptor("render")
	c := &tracestore.Collection{
		Threads: []*tracestore.Thread{
			{
				Name: "main",
				// pop order, deepest first
				Intervals: []interval.Interval{
					{StartTime: 1, EndTime: 2, StackDepth: 1, Task: render},
					{StartTime: 2, EndTime: 2, StackDepth: 1, Task: render},
					{StartTime: 0, EndTime: 3, StackDepth: 0, Task: frame},
					{StartTime: 3, EndTime: 5, StackDepth: 0, Task: frame},
				},
			},
			{
				Name: "worker",
				Intervals: []interval.Interval{
					{StartTime: 4, EndTime: 6, StackDepth: 0, Task: render},
				},
			},
		},
	}

	want := Output{
		Schema:   Schema,
		Exporter: "utview",
		Name:     "trace",
		Profiles: []EventedProfile{
			{
				Name:       "main",
				Type:       ProfileTypeEvented,
				Unit:       ValueUnitSeconds,
				StartValue: 0,
				EndValue:   5,
				Events: []Event{
					{Type: EventTypeOpenFrame, Frame: 0, At: 0},
					{Type: EventTypeOpenFrame, Frame: 1, At: 1},
					{Type: EventTypeCloseFrame, Frame: 1, At: 2},
					{Type: EventTypeOpenFrame, Frame: 1, At: 2},
					{Type: EventTypeCloseFrame, Frame: 1, At: 2},
					{Type: EventTypeCloseFrame, Frame: 0, At: 3},
					{Type: EventTypeOpenFrame, Frame: 0, At: 3},
					{Type: EventTypeCloseFrame, Frame: 0, At: 5},
				},
			},
			{
				Name:       "worker",
				Type:       ProfileTypeEvented,
				Unit:       ValueUnitSeconds,
				StartValue: 4,
				EndValue:   6,
				Events: []Event{
					{Type: EventTypeOpenFrame, Frame: 1, At: 4},
					{Type: EventTypeCloseFrame, Frame: 1, At: 6},
				},
			},
		},
		Shared: SharedData{
			Frames: []Frame{
				{Name: "frame", Color: frame.Color},
				{Name: "render", Color: render.Color},
			},
		},
	}

	got := FromCollection("trace", c)
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestFromCollectionClampsChildren(t *testing.T) {
	a := task.NewDescriptor("a")
	c := &tracestore.Collection{
		Threads: []*tracestore.Thread{
			{
				Name: "main",
				Intervals: []interval.Interval{
					{StartTime: 0, EndTime: 5, StackDepth: 1, Task: a},
					{StartTime: 0, EndTime: 3, StackDepth: 0, Task: a},
				},
			},
		},
	}
	events := FromCollection("trace", c).Profiles[0].Events
	var depth int
	for i, e := range events {
		if i > 0 && e.At < events[i-1].At {
			t.Fatalf("events out of order: %+v", events)
		}
		if e.Type == EventTypeOpenFrame {
			depth++
		} else {
			depth--
		}
		if depth < 0 {
			t.Fatalf("close without open: %+v", events)
		}
	}
	if depth != 0 || events[len(events)-1].At != 3 {
		t.Fatalf("unexpected events: %+v", events)
	}
}
