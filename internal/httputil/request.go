package httputil

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/libut/utview/internal/errorutil"
)

// GetOptionalFloatParameter reads a float query parameter. It returns nil
// when the parameter is absent.
func GetOptionalFloatParameter(r *http.Request, key string) (*float64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s=%q", errorutil.ErrInvalidRange, key, value)
	}
	return &f, nil
}

// GetRangeParameters reads the lo and hi query parameters, defaulting each
// missing bound to the matching bound of [lo, hi].
func GetRangeParameters(r *http.Request, lo, hi float64) (float64, float64, error) {
	l, err := GetOptionalFloatParameter(r, "lo")
	if err != nil {
		return 0, 0, err
	}
	h, err := GetOptionalFloatParameter(r, "hi")
	if err != nil {
		return 0, 0, err
	}
	if l != nil {
		lo = *l
	}
	if h != nil {
		hi = *h
	}
	return lo, hi, nil
}
