package service

import "errors"

// Sentinel kinds for analysis errors.
var (
	// ErrInsufficientData rejects a shot whose landmark stream is too sparse
	// to analyze at all. Distinct from an indeterminate result, which is a
	// successful analysis of an unrecognizable motion.
	ErrInsufficientData = errors.New("insufficient landmark data")
)
