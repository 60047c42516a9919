package dataterm

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this module wraps exactly one of them,
// test with errors.Is.
var (
	// ErrInvalidParameters reports malformed or out-of-range input, detected
	// before anything is loaded or transformed.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrSourceUnavailable reports a provider that could not be reached or did
	// not answer in time.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEmptyResult reports a provider that answered with zero rows.
	ErrEmptyResult = errors.New("empty result")
	// ErrNotFound reports a reference to a dataset that is not loaded.
	ErrNotFound = errors.New("not found")
	// ErrUnknownColumn reports a reference to a column absent from a dataset.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInsufficientRows reports a windowed computation on too few rows.
	ErrInsufficientRows = errors.New("insufficient rows")
)

// Stage names a step of the command pipeline.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
	StageRender    Stage = "render"
	StageExport    Stage = "export"
	StageStore     Stage = "store"
)

// StageError identifies the pipeline stage a failure comes from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// AtStage wraps err into a StageError, unless it is nil or already one.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// invalidf returns an ErrInvalidParameters with a formatted detail.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
