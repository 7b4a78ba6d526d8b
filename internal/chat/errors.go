package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for blank or whitespace-only submissions.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned while a previous request is still in flight.
	ErrBusy = errors.New("a response is already being generated")
)

// ConfigurationError blocks submission before any network call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// TransportError covers non-success statuses and network or read failures.
// The session has already surfaced it in the transcript when it is returned.
type TransportError struct {
	// Streaming is true when the failure happened after the response started.
	Streaming bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Streaming {
		return fmt.Sprintf("stream interrupted: %v", e.Err)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorContent is the assistant message shown for a TransportError.
func errorContent(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error: %v. Please check your API key and try again.", err)
}
