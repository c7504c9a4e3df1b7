package tracestore

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/libut/utview/internal/interval"
	"github.com/libut/utview/internal/task"
	"github.com/libut/utview/internal/tracefile"
)

var (
	ErrAlreadyTrimmed = errors.New("collection was already trimmed")
	ErrInvalidCutoff  = errors.New("cutoff must be a finite, non-negative number of seconds")
)

type (
	Thread struct {
		Name        string              `json:"thread_name"`
		ProcessName string              `json:"name"`
		Intervals   []interval.Interval `json:"intervals"`
		TimeMin     float64             `json:"time_min"`
		TimeMax     float64             `json:"time_max"`
		Anomalies   []interval.Anomaly  `json:"anomalies,omitempty"`

		catalog task.Catalog
	}

	Collection struct {
		Threads      []*Thread `json:"threads"`
		TimestampMax float64   `json:"timestamp_max"`
		// Cutoff is the offset subtracted from every timestamp by Trim.
		Cutoff  float64 `json:"cutoff"`
		Trimmed bool    `json:"trimmed"`
	}

	Options struct {
		// Threads restricts loading to the named threads. All threads are
		// loaded when empty.
		Threads []string
		// Workers is the number of threads reconstructed concurrently.
		Workers int
	}

	ThreadSummary struct {
		Name      string  `json:"thread_name"`
		Intervals int     `json:"intervals"`
		Anomalies int     `json:"anomalies"`
		TimeMin   float64 `json:"time_min"`
		TimeMax   float64 `json:"time_max"`
	}

	Summary struct {
		Threads      []ThreadSummary `json:"threads"`
		TimestampMax float64         `json:"timestamp_max"`
		Intervals    int             `json:"intervals"`
		Anomalies    int             `json:"anomalies"`
		Cutoff       float64         `json:"cutoff"`
	}
)

func (t *Thread) Catalog() task.Catalog {
	return t.catalog
}

// Load reconstructs the intervals of every thread record. Threads without
// intervals are left out of the collection.
func Load(threads []tracefile.Thread, opts Options) *Collection {
	selected := selectThreads(threads, opts.Threads)
	results := reconstructAll(selected, opts.Workers)

	c := &Collection{
		Threads: make([]*Thread, 0, len(selected)),
	}
	for i, rt := range selected {
		res := results[i]
		for _, a := range res.Anomalies {
			logAnomaly(rt.Name, a)
		}
		if len(res.Intervals) == 0 {
			log.Debug().Str("thread", rt.Name).Int("samples", len(rt.Samples)).Msg("skip thread without intervals")
			continue
		}
		log.Debug().
			Str("thread", rt.Name).
			Str("process", rt.ProcessName).
			Int("samples", len(rt.Samples)).
			Int("intervals", len(res.Intervals)).
			Msg("reconstructed thread")
		c.Threads = append(c.Threads, &Thread{
			Name:        rt.Name,
			ProcessName: rt.ProcessName,
			Intervals:   res.Intervals,
			TimeMin:     res.TimeMin,
			TimeMax:     res.TimeMax,
			Anomalies:   res.Anomalies,
			catalog:     res.catalog,
		})
		c.TimestampMax = math.Max(c.TimestampMax, res.TimeMax)
	}
	return c
}

// selectThreads keeps the threads worth reconstructing: those with samples
// and, when names is set, one of the given names.
func selectThreads(threads []tracefile.Thread, names []string) []tracefile.Thread {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	selected := make([]tracefile.Thread, 0, len(threads))
	for _, rt := range threads {
		if len(rt.Samples) == 0 {
			log.Debug().Str("thread", rt.Name).Msg("skip thread without samples")
			continue
		}
		if len(wanted) > 0 {
			if _, exists := wanted[rt.Name]; !exists {
				continue
			}
		}
		selected = append(selected, rt)
	}
	return selected
}

type (
	reconstructJob struct {
		index  int
		thread tracefile.Thread
		result chan<- reconstructResult
	}

	reconstructResult struct {
		interval.Result
		index   int
		catalog task.Catalog
	}
)

func reconstruct(j reconstructJob) {
	catalog := task.Build(j.thread.Ancillary)
	j.result <- reconstructResult{
		Result:  interval.Reconstruct(j.thread.Samples, catalog),
		index:   j.index,
		catalog: catalog,
	}
}

// reconstructAll replays threads on a pool of workers and returns the
// results in thread order.
func reconstructAll(threads []tracefile.Thread, workers int) []reconstructResult {
	if workers < 1 {
		workers = 1
	}
	workers = min(workers, max(len(threads), 1))

	jobs := make(chan reconstructJob, len(threads))
	results := make(chan reconstructResult, len(threads))
	for w := 0; w < workers; w++ {
		go func() {
			for j := range jobs {
				reconstruct(j)
			}
		}()
	}
	for i, t := range threads {
		jobs <- reconstructJob{index: i, thread: t, result: results}
	}
	close(jobs)

	ordered := make([]reconstructResult, len(threads))
	for range threads {
		r := <-results
		ordered[r.index] = r
	}
	return ordered
}

func logAnomaly(thread string, a interval.Anomaly) {
	e := log.Warn().
		Str("thread", thread).
		Str("kind", string(a.Kind)).
		Int("sample_index", a.SampleIndex).
		Float64("timestamp", a.Timestamp).
		Uint("stack_depth", a.StackDepth).
		Uint("task", a.Task)
	if a.OpenTask != nil {
		e = e.Uint("open_task", *a.OpenTask)
	}
	if a.Frames > 0 {
		e = e.Int("frames", a.Frames)
	}
	switch a.Kind {
	case interval.UnbalancedPush:
		e.Msg("unbalanced push")
	case interval.MismatchedPop:
		e.Msg("pop does not match the open frame")
	case interval.InvalidDepth:
		e.Msg("stack depth out of range")
	default:
		e.Msg("pop discarded deeper frames")
	}
}

// Trim drops every interval ending at or before cutoff and rebases the
// remaining ones so cutoff becomes time 0. A collection can only be trimmed
// once.
func (c *Collection) Trim(cutoff float64) error {
	if c.Trimmed {
		return ErrAlreadyTrimmed
	}
	if cutoff < 0 || math.IsNaN(cutoff) || math.IsInf(cutoff, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCutoff, cutoff)
	}

	threads := c.Threads[:0]
	for _, t := range c.Threads {
		kept := t.Intervals[:0]
		for _, iv := range t.Intervals {
			if iv.EndTime <= cutoff {
				continue
			}
			iv.StartTime -= cutoff
			iv.EndTime -= cutoff
			kept = append(kept, iv)
		}
		if len(kept) == 0 {
			log.Debug().Str("thread", t.Name).Float64("cutoff", cutoff).Msg("thread emptied by trim")
			continue
		}
		t.Intervals = kept
		t.TimeMin, t.TimeMax = interval.Bounds(kept)
		threads = append(threads, t)
	}
	for i := len(threads); i < len(c.Threads); i++ {
		c.Threads[i] = nil
	}
	c.Threads = threads
	c.TimestampMax = math.Max(c.TimestampMax-cutoff, 0)
	c.Cutoff = cutoff
	c.Trimmed = true
	return nil
}

// TrimToWindow keeps the last window seconds of the trace. It reports
// whether the collection was trimmed.
func (c *Collection) TrimToWindow(window float64) (bool, error) {
	if window <= 0 || c.TimestampMax <= window {
		return false, nil
	}
	if err := c.Trim(c.TimestampMax - window); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection) Thread(name string) (*Thread, bool) {
	for _, t := range c.Threads {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

func (c *Collection) IntervalCount() int {
	var n int
	for _, t := range c.Threads {
		n += len(t.Intervals)
	}
	return n
}

func (c *Collection) Summary() Summary {
	s := Summary{
		Threads:      make([]ThreadSummary, 0, len(c.Threads)),
		TimestampMax: c.TimestampMax,
		Cutoff:       c.Cutoff,
	}
	for _, t := range c.Threads {
		s.Threads = append(s.Threads, ThreadSummary{
			Name:      t.Name,
			Intervals: len(t.Intervals),
			Anomalies: len(t.Anomalies),
			TimeMin:   t.TimeMin,
			TimeMax:   t.TimeMax,
		})
		s.Intervals += len(t.Intervals)
		s.Anomalies += len(t.Anomalies)
	}
	return s
}
