package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures that are due to
// unrecoverable data integrity issues, such as a stored trace that no
// longer decodes.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents situations in which a query matched nothing.
var ErrNoResults = errors.New("no results returned")

// ErrInvalidRange is returned for a time range that is not made of finite
// numbers.
var ErrInvalidRange = errors.New("invalid time range")
