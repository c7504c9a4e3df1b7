package task

import (
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/rs/zerolog/log"

	"github.com/libut/utview/internal/tracefile"
)

type (
	Descriptor struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// Catalog maps the task ids used by a thread's samples to their
	// descriptors.
	Catalog map[uint]*Descriptor
)

// Unknown is returned for task ids without a descriptor.
var Unknown = &Descriptor{
	Name:  "unknown",
	Color: "#ff0000",
}

func NewDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:  name,
		Color: ColorFromName(name),
	}
}

// Build creates a catalog from a thread's ancillary records. When two
// records share an index, the last one wins.
func Build(records []tracefile.AncillaryRecord) Catalog {
	c := make(Catalog)
	for _, r := range records {
		if r.Type != tracefile.TaskDescRecord {
			continue
		}
		c[r.Index] = NewDescriptor(r.Name)
		log.Debug().Uint("index", r.Index).Str("task", r.Name).Msg("add task description")
	}
	return c
}

func (c Catalog) Lookup(id uint) *Descriptor {
	if d, exists := c[id]; exists && d != nil {
		return d
	}
	return Unknown
}

// NameHash folds a rolling hash of the name's UTF-16 code units into a
// fraction in [0, 1).
func NameHash(name string) float64 {
	var h int32
	for _, c := range utf16.Encode([]rune(name)) {
		h = (h << 5) - h + int32(c)
	}
	f := float64(uint32(h)) / (math.Pow(2, 32) - 1)
	if f >= 1 {
		return 0
	}
	return f
}

// ColorFromName picks a saturated, light color so labels stay readable on a
// light background.
func ColorFromName(name string) string {
	f := NameHash(name)
	return fmt.Sprintf("hsl(%.2f, %.2f%%, %.2f%%)", f*255, 80+f*20, 60+f*20)
}
