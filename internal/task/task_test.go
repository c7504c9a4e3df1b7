package task

import (
	"testing"

	"github.com/libut/utview/internal/testutil"
	"github.com/libut/utview/internal/tracefile"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		records []tracefile.AncillaryRecord
		want    Catalog
	}{
		{
			name: "task descriptions",
			records: []tracefile.AncillaryRecord{
				{Type: tracefile.TaskDescRecord, Index: 1, Name: "A"},
				{Type: tracefile.TaskDescRecord, Index: 2, Name: "B"},
			},
			want: Catalog{
				1: NewDescriptor("A"),
				2: NewDescriptor("B"),
			},
		},
		{
			name: "last write wins",
			records: []tracefile.AncillaryRecord{
				{Type: tracefile.TaskDescRecord, Index: 1, Name: "A"},
				{Type: tracefile.TaskDescRecord, Index: 1, Name: "C"},
			},
			want: Catalog{
				1: NewDescriptor("C"),
			},
		},
		{
			name: "other record types are ignored",
			records: []tracefile.AncillaryRecord{
				{Type: "backtrace", Index: 1, Name: "A"},
			},
			want: Catalog{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Build(test.records)
			if diff := testutil.Diff(got, test.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	c := Build([]tracefile.AncillaryRecord{
		{Type: tracefile.TaskDescRecord, Index: 1, Name: "A"},
	})
	if got := c.Lookup(1).Name; got != "A" {
		t.Fatalf("expected task A, got %q", got)
	}
	if got := c.Lookup(7); got != Unknown {
		t.Fatalf("expected the unknown descriptor, got %+v", got)
	}
	var empty Catalog
	if got := empty.Lookup(0); got != Unknown {
		t.Fatalf("expected the unknown descriptor from a nil catalog, got %+v", got)
	}
}

func TestNameHash(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "empty", input: "", want: 0},
		// 'a' = 97
		{name: "single character", input: "a", want: 97 / 4294967295.0},
		// 97*31 + 98 = 3105
		{name: "two characters", input: "ab", want: 3105 / 4294967295.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := NameHash(test.input); got != test.want {
				t.Fatalf("expected %v, got %v", test.want, got)
			}
		})
	}
}

func TestNameHashRange(t *testing.T) {
	for _, name := range []string{"frame", "vkQueueSubmit", "LighthouseDirec", "日本語", "a very long task name that overflows the hash"} {
		f := NameHash(name)
		if f < 0 || f >= 1 {
			t.Fatalf("hash of %q out of range: %v", name, f)
		}
	}
}

func TestColorIsDeterministic(t *testing.T) {
	a := ColorFromName("render")
	b := NewDescriptor("render").Color
	if a != b {
		t.Fatalf("expected the same color for the same name, got %q and %q", a, b)
	}
	if ColorFromName("") != "hsl(0.00, 80.00%, 60.00%)" {
		t.Fatalf("unexpected color for an empty name: %q", ColorFromName(""))
	}
}
