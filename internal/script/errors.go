package script

import (
	"errors"
)

// Sentinel errors for comparison with errors.Is.
var (
	ErrNotFound           = errors.New("script not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrCollectionMismatch = errors.New("input and output collections must have the same type")
	ErrKindMismatch       = errors.New("record kind does not match script")
	ErrUnknownOffset      = errors.New("record offset is not a string reference")
	ErrRateLimited        = errors.New("rate limited")
	ErrNotSupported       = errors.New("operation not supported")
)

// Severity tells the orchestration loop whether an error ends the run or
// only the current script.
type Severity int

const (
	SeveritySkip Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "skip"
}

// Classify returns the severity of err. Format and collection wiring
// problems cannot be fixed by moving on to the next script; everything else
// is confined to the script that produced it.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeveritySkip
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrCollectionMismatch):
		return SeverityFatal
	}
	return SeveritySkip
}
