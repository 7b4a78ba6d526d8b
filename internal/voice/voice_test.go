package voice

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCapability struct {
	events   chan Event
	startErr error
	stopped  bool
}

func (f *fakeCapability) Start(ctx context.Context) (<-chan Event, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.events, nil
}

func (f *fakeCapability) Stop() error {
	f.stopped = true
	return nil
}

func TestListenerWithoutCapability(t *testing.T) {
	l := NewListener(nil)
	if l.Available() {
		t.Fatal("Listener without capability must not be available")
	}
	if _, err := l.Start(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Errorf("Stop on unavailable listener should be a no-op, got %v", err)
	}

	var nilListener *Listener
	if nilListener.Available() || nilListener.Listening() {
		t.Error("Nil listener must report unavailable and idle")
	}
}

func TestListenerResultFlow(t *testing.T) {
	capability := &fakeCapability{events: make(chan Event, 3)}
	l := NewListener(capability)

	if _, err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !l.Listening() {
		t.Fatal("Expected listening after start")
	}
	if _, err := l.Start(context.Background()); !errors.Is(err, ErrAlreadyListening) {
		t.Errorf("Expected ErrAlreadyListening, got %v", err)
	}

	l.Handle(Event{Kind: EventStarted})
	text, err := l.Handle(Event{Kind: EventResult, Text: "  Fix a squeaky door \n"})
	if err != nil || text != "Fix a squeaky door" {
		t.Errorf("Expected trimmed transcript, got %q, %v", text, err)
	}
	if !l.Listening() {
		t.Error("Result alone should not clear the indicator")
	}

	l.Handle(Event{Kind: EventEnded})
	if l.Listening() {
		t.Error("Expected indicator cleared after end")
	}
}

func TestListenerErrorResetsIndicator(t *testing.T) {
	l := NewListener(&fakeCapability{events: make(chan Event)})
	if _, err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err := l.Handle(Event{Kind: EventError, Err: errors.New("no-speech")})
	var captureErr *VoiceCaptureError
	if !errors.As(err, &captureErr) {
		t.Fatalf("Expected VoiceCaptureError, got %v", err)
	}
	if l.Listening() {
		t.Error("Error must reset the listening indicator")
	}
}

func TestListenerStartFailure(t *testing.T) {
	l := NewListener(&fakeCapability{startErr: errors.New("microphone busy")})
	_, err := l.Start(context.Background())

	var captureErr *VoiceCaptureError
	if !errors.As(err, &captureErr) {
		t.Fatalf("Expected VoiceCaptureError, got %v", err)
	}
	if l.Listening() {
		t.Error("Failed start must not set the indicator")
	}
}

func TestListenerStopDelegates(t *testing.T) {
	capability := &fakeCapability{events: make(chan Event)}
	l := NewListener(capability)
	l.Start(context.Background())

	if err := l.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !capability.stopped {
		t.Error("Expected Stop to reach the capability")
	}
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("Timed out waiting for voice events")
		}
	}
}

func TestCommandRecognizerProducesTranscript(t *testing.T) {
	r := NewCommandRecognizer([]string{"sh", "-c", `printf '%s\n' "Unclog a drain ($HOME_ASSISTANT_VOICE_LANG)"`}, "en-US")

	events, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got := drain(t, events)
	if len(got) != 3 {
		t.Fatalf("Expected started, result, ended; got %+v", got)
	}
	if got[0].Kind != EventStarted || got[1].Kind != EventResult || got[2].Kind != EventEnded {
		t.Errorf("Unexpected event order: %+v", got)
	}
	if got[1].Text != "Unclog a drain (en-US)" {
		t.Errorf("Unexpected transcript %q", got[1].Text)
	}
}

func TestCommandRecognizerReportsFailure(t *testing.T) {
	r := NewCommandRecognizer([]string{"sh", "-c", "echo 'no microphone' >&2; exit 3"}, "en-US")

	events, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got := drain(t, events)
	if len(got) != 3 || got[1].Kind != EventError {
		t.Fatalf("Expected an error event, got %+v", got)
	}
	var captureErr *VoiceCaptureError
	if !errors.As(got[1].Err, &captureErr) || captureErr.Reason != "no microphone" {
		t.Errorf("Expected stderr as reason, got %v", got[1].Err)
	}
}

func TestCommandRecognizerStop(t *testing.T) {
	r := NewCommandRecognizer([]string{"sh", "-c", "exec sleep 10"}, "en-US")

	events, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Stop()

	got := drain(t, events)
	for _, ev := range got {
		if ev.Kind == EventResult || ev.Kind == EventError {
			t.Errorf("Stopped capture should only start and end, got %+v", ev)
		}
	}
	if got[len(got)-1].Kind != EventEnded {
		t.Errorf("Expected final EventEnded, got %+v", got)
	}

	// A new capture can start after the previous one ended
	events, err = r.Start(context.Background())
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	r.Stop()
	drain(t, events)
}

func TestCommandRecognizerMissingBinary(t *testing.T) {
	r := NewCommandRecognizer([]string{"definitely-not-a-speech-tool"}, "en-US")
	if _, err := r.Start(context.Background()); err == nil {
		t.Fatal("Expected start error for missing binary")
	}
	// The failed start must not leave the recognizer busy
	r2 := NewCommandRecognizer(nil, "en-US")
	if _, err := r2.Start(context.Background()); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestDecodeTranscript(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "utf-8", raw: []byte("Energy saving tips\n"), want: "Energy saving tips"},
		{name: "utf-8 bom", raw: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Hi")...), want: "Hi"},
		{name: "utf-16le bom", raw: []byte{0xFF, 0xFE, 'H', 0, 'i', 0}, want: "Hi"},
		{name: "empty", raw: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTranscript(tt.raw)
			if err != nil {
				t.Fatalf("decodeTranscript failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeTranscript() = %q, want %q", got, tt.want)
			}
		})
	}
}
