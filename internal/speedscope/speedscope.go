package speedscope

import (
	"math"
	"sort"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/tracestore"
)

const (
	Schema = "https://www.speedscope.app/file-format-schema.json"

	ValueUnitSeconds ValueUnit = "seconds"

	EventTypeOpenFrame  EventType = "O"
	EventTypeCloseFrame EventType = "C"

	ProfileTypeEvented ProfileType = "evented"
)

type (
	Frame struct {
		Name  string `json:"name"`
		Color string `json:"color,omitempty"`
	}

	Event struct {
		Type  EventType `json:"type"`
		Frame int       `json:"frame"`
		At    float64   `json:"at"`
	}

	EventedProfile struct {
		EndValue   float64     `json:"endValue"`
		Events     []Event     `json:"events"`
		Name       string      `json:"name"`
		StartValue float64     `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	EventType   string
	ProfileType string
	ValueUnit   string

	Output struct {
		Schema             string           `json:"$schema"`
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		Exporter           string           `json:"exporter"`
		Name               string           `json:"name"`
		Profiles           []EventedProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
	}

	// open is a frame opened in the event stream, with the end it will be
	// closed at.
	open struct {
		frame int
		end   float64
	}
)

// FromCollection builds one evented profile per thread. Frames are the
// distinct task names, in order of first appearance.
func FromCollection(name string, c *tracestore.Collection) Output {
	o := Output{
		Schema:   Schema,
		Exporter: "utview",
		Name:     name,
		Profiles: make([]EventedProfile, 0, len(c.Threads)),
	}
	frames := make(map[string]int)
	for _, t := range c.Threads {
		o.Profiles = append(o.Profiles, threadProfile(t, frames, &o.Shared))
	}
	return o
}

func threadProfile(t *tracestore.Thread, frames map[string]int, shared *SharedData) EventedProfile {
	intervals := make([]interval.Interval, len(t.Intervals))
	copy(intervals, t.Intervals)
	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].StartTime != intervals[j].StartTime {
			return intervals[i].StartTime < intervals[j].StartTime
		}
		if intervals[i].StackDepth != intervals[j].StackDepth {
			return intervals[i].StackDepth < intervals[j].StackDepth
		}
		return intervals[i].EndTime > intervals[j].EndTime
	})

	p := EventedProfile{
		Name:   t.Name,
		Type:   ProfileTypeEvented,
		Unit:   ValueUnitSeconds,
		Events: make([]Event, 0, 2*len(intervals)),
	}
	if len(intervals) > 0 {
		p.StartValue = intervals[0].StartTime
	}

	var stack []open
	closeUntil := func(at float64) {
		for len(stack) > 0 && stack[len(stack)-1].end <= at {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.Events = append(p.Events, Event{Type: EventTypeCloseFrame, Frame: top.frame, At: top.end})
		}
	}
	for _, iv := range intervals {
		closeUntil(iv.StartTime)
		i, exists := frames[iv.Task.Name]
		if !exists {
			i = len(shared.Frames)
			frames[iv.Task.Name] = i
			shared.Frames = append(shared.Frames, Frame{Name: iv.Task.Name, Color: iv.Task.Color})
		}
		end := iv.EndTime
		if len(stack) > 0 {
			// a frame cannot outlive its parent
			end = math.Min(end, stack[len(stack)-1].end)
		}
		p.Events = append(p.Events, Event{Type: EventTypeOpenFrame, Frame: i, At: iv.StartTime})
		stack = append(stack, open{frame: i, end: end})
	}
	closeUntil(math.Inf(1))
	if n := len(p.Events); n > 0 {
		p.EndValue = p.Events[n-1].At
	}
	return p
}
