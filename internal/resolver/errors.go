package resolver

import "errors"

// Declared failure modes of media resolution. Callers report these to the
// user; anything else is treated as a network failure.
var (
	ErrNotFound          = errors.New("no results found")
	ErrNetworkFailure    = errors.New("media extraction failed")
	ErrUnsupportedSource = errors.New("unsupported media source")
)
