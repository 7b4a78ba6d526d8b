// Package voice turns an external speech-recognition capability into input
// pre-fill. The chat session never depends on it; a nil capability simply
// means voice input is unavailable.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"home-assistant/internal/logging"
	"home-assistant/internal/metrics"
)

type EventKind int

const (
	EventStarted EventKind = iota
	EventResult
	EventEnded
	EventError
)

type Event struct {
	Kind EventKind
	Text string // set for EventResult
	Err  error  // set for EventError
}

// Capability is one speech-recognition backend. Start begins a single
// capture and returns its events; the channel is closed after EventEnded.
type Capability interface {
	Start(ctx context.Context) (<-chan Event, error)
	Stop() error
}

var (
	ErrUnavailable      = errors.New("voice input is not available")
	ErrAlreadyListening = errors.New("already listening")
)

// VoiceCaptureError is a failure reported by the capability. It only resets
// the listening indicator; nothing reaches the transcript.
type VoiceCaptureError struct {
	Reason string
	Err    error
}

func (e *VoiceCaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech recognition error: %s: %v", e.Reason, e.Err)
	}
	return "speech recognition error: " + e.Reason
}

func (e *VoiceCaptureError) Unwrap() error {
	return e.Err
}

// Listener owns the listening indicator for one capability.
type Listener struct {
	capability Capability

	mu        sync.Mutex
	listening bool
}

func NewListener(c Capability) *Listener {
	return &Listener{capability: c}
}

func (l *Listener) Available() bool {
	return l != nil && l.capability != nil
}

func (l *Listener) Listening() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Start begins a capture. Events must be passed to Handle as they arrive.
func (l *Listener) Start(ctx context.Context) (<-chan Event, error) {
	if !l.Available() {
		return nil, ErrUnavailable
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listening {
		return nil, ErrAlreadyListening
	}

	events, err := l.capability.Start(ctx)
	if err != nil {
		metrics.VoiceCaptures.WithLabelValues("error").Inc()
		return nil, &VoiceCaptureError{Reason: "failed to start", Err: err}
	}
	l.listening = true
	return events, nil
}

// Stop ends the current capture. Stopping when idle is a no-op.
func (l *Listener) Stop() error {
	if !l.Available() || !l.Listening() {
		return nil
	}
	return l.capability.Stop()
}

// Handle applies one capability event to the indicator. It returns the
// recognized text for EventResult and the capture error for EventError.
func (l *Listener) Handle(ev Event) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Kind {
	case EventStarted:
		l.listening = true
	case EventResult:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			metrics.VoiceCaptures.WithLabelValues("empty").Inc()
			return "", nil
		}
		metrics.VoiceCaptures.WithLabelValues("transcript").Inc()
		return text, nil
	case EventEnded:
		l.listening = false
	case EventError:
		l.listening = false
		metrics.VoiceCaptures.WithLabelValues("error").Inc()
		logging.Error("Speech recognition error: %v", ev.Err)

		var captureErr *VoiceCaptureError
		if errors.As(ev.Err, &captureErr) {
			return "", captureErr
		}
		return "", &VoiceCaptureError{Reason: "capture failed", Err: ev.Err}
	}
	return "", nil
}
