package tracefile

import (
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
)

// ErrUnsupportedFormat is returned when the input is not a JSON array of
// trace records.
var ErrUnsupportedFormat = errors.New("unsupported trace format")

const (
	PushKind      Kind = 1
	PopKind       Kind = 2
	BacktraceKind Kind = 3

	ThreadRecord   = "thread"
	TaskDescRecord = "task-desc"
)

type (
	Kind uint16

	Sample struct {
		Kind       Kind    `json:"type"`
		Timestamp  float64 `json:"timestamp"`
		StackDepth uint    `json:"stack_depth"`
		Task       uint    `json:"task"`
		CPU        int     `json:"cpu"`
	}

	AncillaryRecord struct {
		Type  string `json:"type"`
		Index uint   `json:"index"`
		Name  string `json:"name"`
	}

	Thread struct {
		Type        string            `json:"type"`
		ProcessName string            `json:"name"`
		Name        string            `json:"thread_name"`
		Samples     []Sample          `json:"samples"`
		Ancillary   []AncillaryRecord `json:"ancillary"`
	}

	recordType struct {
		Type string `json:"type"`
	}
)

func (k Kind) String() string {
	switch k {
	case PushKind:
		return "push"
	case PopKind:
		return "pop"
	case BacktraceKind:
		return "backtrace"
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// Decode reads a trace file and returns its thread records in file order.
// Records of any other type are skipped.
func Decode(r io.Reader) ([]Thread, error) {
	var records []gojson.RawMessage
	if err := gojson.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return threadsFromRecords(records)
}

// Unmarshal is Decode for an in-memory trace file.
func Unmarshal(b []byte) ([]Thread, error) {
	var records []gojson.RawMessage
	if err := gojson.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return threadsFromRecords(records)
}

func threadsFromRecords(records []gojson.RawMessage) ([]Thread, error) {
	threads := make([]Thread, 0, len(records))
	for i, raw := range records {
		var rt recordType
		if err := gojson.Unmarshal(raw, &rt); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if rt.Type != ThreadRecord {
			continue
		}
		var t Thread
		if err := gojson.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("thread record %d: %w", i, err)
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// Encode writes threads in the trace file layout.
func Encode(w io.Writer, threads []Thread) error {
	for i := range threads {
		if threads[i].Type == "" {
			threads[i].Type = ThreadRecord
		}
	}
	return gojson.NewEncoder(w).Encode(threads)
}

// SampleCount returns the number of samples of all threads.
func SampleCount(threads []Thread) int {
	var n int
	for _, t := range threads {
		n += len(t.Samples)
	}
	return n
}
