package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"home-assistant/internal/logging"
)

// EnvLanguage carries the recognition language to the command.
const EnvLanguage = "HOME_ASSISTANT_VOICE_LANG"

// CommandRecognizer captures one utterance per Start by running an external
// speech-to-text program and reading the transcript from its stdout.
type CommandRecognizer struct {
	argv     []string
	language string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewCommandRecognizer(argv []string, language string) *CommandRecognizer {
	return &CommandRecognizer{
		argv:     append([]string(nil), argv...),
		language: language,
	}
}

func (r *CommandRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	if len(r.argv) == 0 {
		return nil, fmt.Errorf("no voice command configured")
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return nil, ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Env = append(os.Environ(), EnvLanguage+"="+r.language)
	// Recorders often fork helpers that outlive a killed parent
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		r.finish()
		return nil, fmt.Errorf("failed to start voice command: %w", err)
	}
	logging.Debug("Voice command started: %s", strings.Join(r.argv, " "))

	events := make(chan Event, 4)
	events <- Event{Kind: EventStarted}

	go func() {
		defer close(events)
		defer r.finish()

		err := cmd.Wait()
		switch {
		case ctx.Err() != nil:
			// Stopped by the user: whatever was captured is discarded
		case err != nil:
			reason := strings.TrimSpace(stderr.String())
			if reason == "" {
				reason = "voice command failed"
			}
			events <- Event{Kind: EventError, Err: &VoiceCaptureError{Reason: reason, Err: err}}
		default:
			text, err := decodeTranscript(stdout.Bytes())
			if err != nil {
				events <- Event{Kind: EventError, Err: &VoiceCaptureError{Reason: "unreadable transcript", Err: err}}
				break
			}
			events <- Event{Kind: EventResult, Text: text}
		}
		events <- Event{Kind: EventEnded}
	}()

	return events, nil
}

func (r *CommandRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

func (r *CommandRecognizer) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// decodeTranscript reads recognizer output as UTF-8, switching to UTF-16
// when the output starts with a UTF-16 byte order mark.
func decodeTranscript(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", fmt.Errorf("failed to decode transcript: %w", err)
	}
	return strings.TrimSpace(string(decoded)), nil
}
