package chrometrace

import (
	"sort"

	"github.com/libut/utview/internal/tracestore"
)

const (
	phaseComplete phase = "X"
	phaseMetadata phase = "M"

	categoryTask = "task"

	metadataProcessName = "process_name"
	metadataThreadName  = "thread_name"
)

type (
	phase string

	// Event is a record of the Trace Event Format read by chrome://tracing
	// and Perfetto. Timestamps and durations are in microseconds.
	Event struct {
		Name     string                 `json:"name"`
		Category string                 `json:"cat,omitempty"`
		Phase    phase                  `json:"ph"`
		TS       float64                `json:"ts"`
		Duration float64                `json:"dur,omitempty"`
		PID      int                    `json:"pid"`
		TID      int                    `json:"tid"`
		Args     map[string]interface{} `json:"args,omitempty"`
	}

	Output struct {
		TraceEvents     []Event `json:"traceEvents"`
		DisplayTimeUnit string  `json:"displayTimeUnit"`
	}
)

// FromCollection turns every interval into a complete event. Threads sharing
// a process name share a pid.
func FromCollection(c *tracestore.Collection) Output {
	o := Output{
		TraceEvents:     make([]Event, 0, c.IntervalCount()+2*len(c.Threads)),
		DisplayTimeUnit: "ms",
	}
	pids := make(map[string]int)
	for i, t := range c.Threads {
		pid, exists := pids[t.ProcessName]
		if !exists {
			pid = len(pids) + 1
			pids[t.ProcessName] = pid
			o.TraceEvents = append(o.TraceEvents, Event{
				Name:  metadataProcessName,
				Phase: phaseMetadata,
				PID:   pid,
				Args:  map[string]interface{}{"name": t.ProcessName},
			})
		}
		tid := i + 1
		o.TraceEvents = append(o.TraceEvents, Event{
			Name:  metadataThreadName,
			Phase: phaseMetadata,
			PID:   pid,
			TID:   tid,
			Args:  map[string]interface{}{"name": t.Name},
		})

		start := len(o.TraceEvents)
		for _, iv := range t.Intervals {
			o.TraceEvents = append(o.TraceEvents, Event{
				Name:     iv.Task.Name,
				Category: categoryTask,
				Phase:    phaseComplete,
				TS:       iv.StartTime * 1e6,
				Duration: iv.Duration() * 1e6,
				PID:      pid,
				TID:      tid,
				Args: map[string]interface{}{
					"depth":      iv.StackDepth,
					"core_start": iv.CoreStart,
					"core_end":   iv.CoreEnd,
				},
			})
		}
		// parents before children
		events := o.TraceEvents[start:]
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].TS != events[j].TS {
				return events[i].TS < events[j].TS
			}
			return events[i].Duration > events[j].Duration
		})
	}
	return o
}
