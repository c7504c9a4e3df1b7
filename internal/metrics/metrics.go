package metrics

import (
	"errors"
	"math"
	"sort"

	"github.com/libut/utview/internal/tracestore"
)

type (
	taskMetadata struct {
		Color       string
		MaxDuration float64
		WorstThread string
		Threads     []string
	}

	Aggregator struct {
		MaxUniqueTasks   uint
		MaxNumOfExamples uint
		Durations        map[string][]float64
		TasksMetadata    map[string]taskMetadata
	}

	TaskStats struct {
		Name        string   `json:"name"`
		Color       string   `json:"color"`
		Count       uint64   `json:"count"`
		Sum         float64  `json:"sum"`
		Avg         float64  `json:"avg"`
		P75         float64  `json:"p75"`
		P95         float64  `json:"p95"`
		P99         float64  `json:"p99"`
		Max         float64  `json:"max"`
		WorstThread string   `json:"worst_thread"`
		Threads     []string `json:"threads"`
	}
)

func NewAggregator(maxUniqueTasks, maxNumOfExamples uint) Aggregator {
	return Aggregator{
		MaxUniqueTasks:   maxUniqueTasks,
		MaxNumOfExamples: maxNumOfExamples,
		Durations:        make(map[string][]float64),
		TasksMetadata:    make(map[string]taskMetadata),
	}
}

// AddThread records the duration of every interval of t under its task
// name.
func (ma *Aggregator) AddThread(t *tracestore.Thread) {
	for _, iv := range t.Intervals {
		name := iv.Task.Name
		d := iv.Duration()
		ma.Durations[name] = append(ma.Durations[name], d)

		md, exists := ma.TasksMetadata[name]
		if !exists {
			ma.TasksMetadata[name] = taskMetadata{
				Color:       iv.Task.Color,
				MaxDuration: d,
				WorstThread: t.Name,
				Threads:     []string{t.Name},
			}
			continue
		}
		if d > md.MaxDuration {
			md.MaxDuration = d
			md.WorstThread = t.Name
		}
		if md.Threads[len(md.Threads)-1] != t.Name && len(md.Threads) < int(ma.MaxNumOfExamples) {
			md.Threads = append(md.Threads, t.Name)
		}
		ma.TasksMetadata[name] = md
	}
}

func (ma *Aggregator) AddCollection(c *tracestore.Collection) {
	for _, t := range c.Threads {
		ma.AddThread(t)
	}
}

// ToStats returns the statistics of the tasks with the largest total
// duration first.
func (ma *Aggregator) ToStats() []TaskStats {
	stats := make([]TaskStats, 0, len(ma.Durations))

	for name, durations := range ma.Durations {
		sort.Float64s(durations)
		p75, _ := quantile(durations, 0.75)
		p95, _ := quantile(durations, 0.95)
		p99, _ := quantile(durations, 0.99)
		var sum float64
		for _, d := range durations {
			sum += d
		}
		md := ma.TasksMetadata[name]
		stats = append(stats, TaskStats{
			Name:        name,
			Color:       md.Color,
			Count:       uint64(len(durations)),
			Sum:         sum,
			Avg:         sum / float64(len(durations)),
			P75:         p75,
			P95:         p95,
			P99:         p99,
			Max:         md.MaxDuration,
			WorstThread: md.WorstThread,
			Threads:     md.Threads,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Sum != stats[j].Sum {
			return stats[i].Sum > stats[j].Sum
		}
		return stats[i].Name < stats[j].Name
	})
	if len(stats) > int(ma.MaxUniqueTasks) {
		stats = stats[:ma.MaxUniqueTasks]
	}
	return stats
}

// quantile expects sorted values and returns the nearest-rank quantile.
func quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("cannot compute percentile from empty list")
	}
	if q <= 0 || q > 1 {
		return 0, errors.New("q must be a value between 0 and 1.0")
	}
	index := int(math.Ceil(float64(len(values))*q)) - 1
	return values[index], nil
}
