package domain

import "errors"

var (
	// ErrDecoding indicates source bytes could not be decoded with the declared encoding.
	ErrDecoding = errors.New("decoding error")

	// ErrMalformedInput indicates a row failed timestamp parsing, density parsing,
	// or calendar validation during normalization.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidDate is returned by callers that gate queries on IsValidDate.
	ErrInvalidDate = errors.New("invalid date")
)
