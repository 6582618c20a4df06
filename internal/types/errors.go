package types

import (
	"errors"
	"fmt"
)

// ErrFatalInput marks precondition failures that abort a run before output exists.
var ErrFatalInput = errors.New("fatal input")

type FatalInputError struct {
	Stage  string
	Reason string
}

func (e *FatalInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *FatalInputError) Is(target error) bool { return target == ErrFatalInput }

func Fatal(stage, format string, args ...any) error {
	return &FatalInputError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// MediaReadError reports a source file that could not be probed or decoded.
type MediaReadError struct {
	Path string
	Err  error
}

func (e *MediaReadError) Error() string {
	return fmt.Sprintf("read media %s: %v", e.Path, e.Err)
}

func (e *MediaReadError) Unwrap() error { return e.Err }
