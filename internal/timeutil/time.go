package timeutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

type (
	// Time decodes from an RFC 3339 string or from seconds since the epoch.
	Time time.Time

	unit struct {
		scale  float64
		suffix string
	}
)

var units = []unit{
	{scale: 1, suffix: "s"},
	{scale: 1e3, suffix: "ms"},
	{scale: 1e6, suffix: "µs"},
	{scale: 1e9, suffix: "ns"},
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == "{}" {
		return nil
	}
	if s[0] == '"' {
		tt, err := time.Parse(`"`+time.RFC3339+`"`, s)
		if err != nil {
			return err
		}
		*t = Time(tt)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	sec, frac := math.Modf(f)
	*t = Time(time.Unix(int64(sec), int64(frac*1e9)).UTC())
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t))
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

// FormatSeconds formats v with 3 decimals in the unit suited to the
// magnitude of ref, so every label of an axis shares one unit.
func FormatSeconds(ref, v float64) string {
	ref = math.Abs(ref)
	u := units[len(units)-1]
	for _, candidate := range units {
		if ref*candidate.scale >= 1 {
			u = candidate
			break
		}
	}
	return fmt.Sprintf("%.3f %s", v*u.scale, u.suffix)
}

// Duration converts seconds to a time.Duration.
func Duration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
