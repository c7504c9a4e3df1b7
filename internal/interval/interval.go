package interval

import (
	"math"

	"github.com/libut/utview/internal/task"
	"github.com/libut/utview/internal/tracefile"
)

const (
	UnbalancedPush  AnomalyKind = "unbalanced_push"
	MismatchedPop   AnomalyKind = "mismatched_pop"
	AbandonedFrames AnomalyKind = "abandoned_frames"
	InvalidDepth    AnomalyKind = "invalid_depth"
)

// MaxStackDepth bounds the depth of a sample. Deeper samples are reported
// and skipped, since replaying them would pad the stack with that many
// empty slots.
const MaxStackDepth = 4096

type (
	Interval struct {
		StartTime  float64          `json:"start_time"`
		EndTime    float64          `json:"end_time"`
		StackDepth uint             `json:"stack_depth"`
		CoreStart  int              `json:"core_start"`
		CoreEnd    int              `json:"core_end"`
		Task       *task.Descriptor `json:"task"`
	}

	AnomalyKind string

	// Anomaly describes a sample the reconstruction could not apply as is.
	Anomaly struct {
		Kind        AnomalyKind `json:"kind"`
		SampleIndex int         `json:"sample_index"`
		Timestamp   float64     `json:"timestamp"`
		StackDepth  uint        `json:"stack_depth"`
		Task        uint        `json:"task"`
		// OpenTask is the task occupying the slot, when there is one.
		OpenTask *uint `json:"open_task,omitempty"`
		// Frames counts the deeper frames discarded by a pop.
		Frames int `json:"frames,omitempty"`
	}

	Result struct {
		Intervals []Interval `json:"intervals"`
		TimeMin   float64    `json:"time_min"`
		TimeMax   float64    `json:"time_max"`
		Anomalies []Anomaly  `json:"anomalies,omitempty"`
	}
)

func (i Interval) Duration() float64 {
	return i.EndTime - i.StartTime
}

// Overlaps reports whether the interval touches [lo, hi], bounds included.
func (i Interval) Overlaps(lo, hi float64) bool {
	return i.EndTime >= lo && i.StartTime <= hi
}

func (i Interval) Contains(o Interval) bool {
	return i.StartTime <= o.StartTime && o.EndTime <= i.EndTime
}

// Reconstruct replays a thread's push and pop samples against an explicit
// stack and emits one interval per completed pop, in pop order.
//
// A pop whose slot was never reached by the replay stands for a frame opened
// before the log started: it is closed with an implicit push at time 0. Once
// a slot has been pushed or popped, a later pop finding it empty is a
// mismatch.
func Reconstruct(samples []tracefile.Sample, catalog task.Catalog) Result {
	var (
		r     Result
		stack = make([]*tracefile.Sample, 0, 16)
		// depths below touched have only been seen through pops of frames
		// opened before the first sample
		touched = math.MaxInt
	)
	r.TimeMin = math.MaxFloat64

	for i := range samples {
		s := samples[i]
		if (s.Kind == tracefile.PushKind || s.Kind == tracefile.PopKind) && s.StackDepth >= MaxStackDepth {
			r.Anomalies = append(r.Anomalies, Anomaly{
				Kind:        InvalidDepth,
				SampleIndex: i,
				Timestamp:   s.Timestamp,
				StackDepth:  s.StackDepth,
				Task:        s.Task,
			})
			continue
		}
		d := int(s.StackDepth)
		switch s.Kind {
		case tracefile.PushKind:
			if len(stack) >= d+1 {
				a := Anomaly{
					Kind:        UnbalancedPush,
					SampleIndex: i,
					Timestamp:   s.Timestamp,
					StackDepth:  s.StackDepth,
					Task:        s.Task,
				}
				if open := stack[d]; open != nil {
					a.OpenTask = &open.Task
				}
				r.Anomalies = append(r.Anomalies, a)
				continue
			}
			for len(stack) < d {
				stack = append(stack, nil)
			}
			stack = append(stack, &samples[i])
			touched = min(touched, d)
		case tracefile.PopKind:
			var open *tracefile.Sample
			if d < len(stack) {
				open = stack[d]
			}
			if open == nil && d < touched {
				open = &tracefile.Sample{
					Kind:       tracefile.PushKind,
					Timestamp:  0,
					StackDepth: s.StackDepth,
					Task:       s.Task,
					CPU:        s.CPU,
				}
			}
			if open == nil || open.Task != s.Task {
				a := Anomaly{
					Kind:        MismatchedPop,
					SampleIndex: i,
					Timestamp:   s.Timestamp,
					StackDepth:  s.StackDepth,
					Task:        s.Task,
				}
				if open != nil {
					a.OpenTask = &open.Task
				}
				r.Anomalies = append(r.Anomalies, a)
				continue
			}
			if d < len(stack) {
				var abandoned int
				for _, f := range stack[d+1:] {
					if f != nil {
						abandoned++
					}
				}
				if abandoned > 0 {
					r.Anomalies = append(r.Anomalies, Anomaly{
						Kind:        AbandonedFrames,
						SampleIndex: i,
						Timestamp:   s.Timestamp,
						StackDepth:  s.StackDepth,
						Task:        s.Task,
						Frames:      abandoned,
					})
				}
				stack = stack[:d]
			} else {
				for len(stack) < d {
					stack = append(stack, nil)
				}
			}
			touched = min(touched, d)

			iv := Interval{
				StartTime:  open.Timestamp,
				EndTime:    s.Timestamp,
				StackDepth: uint(len(stack)),
				CoreStart:  open.CPU,
				CoreEnd:    s.CPU,
				Task:       catalog.Lookup(s.Task),
			}
			r.Intervals = append(r.Intervals, iv)
			r.TimeMax = math.Max(r.TimeMax, iv.EndTime)
			r.TimeMin = math.Min(r.TimeMin, iv.StartTime)
		}
	}
	if len(r.Intervals) == 0 {
		r.TimeMin = 0
	}
	return r
}

// Bounds returns the smallest start time and largest end time of intervals.
func Bounds(intervals []Interval) (float64, float64) {
	if len(intervals) == 0 {
		return 0, 0
	}
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, iv := range intervals {
		lo = math.Min(lo, iv.StartTime)
		hi = math.Max(hi, iv.EndTime)
	}
	return lo, hi
}
