package feedback

import "errors"

var (
	// ErrUnknownParam indicates a tuning parameter name the controller does not have.
	ErrUnknownParam = errors.New("feedback: unknown parameter")
)
