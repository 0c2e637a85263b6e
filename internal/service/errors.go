package service

import (
	"errors"
	"fmt"
)

var ErrClientNotInitialized = errors.New("model client not initialized")

// GenerationError reports that the model produced no usable text.
// Err is the last underlying failure, if there was one.
type GenerationError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	var msg string
	if e.Step == StepCaption {
		msg = "model returned an empty caption"
	} else {
		msg = fmt.Sprintf("failed to generate image %s after %d attempts", e.Step, e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
