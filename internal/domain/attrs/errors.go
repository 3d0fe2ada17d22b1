package attrs

import "errors"

// Sentinel kinds for attribute decoding errors.
var (
	ErrInvalidValue = errors.New("invalid attribute value")
	ErrNotObject    = errors.New("attributes must be a JSON object")
)
