// Package chat drives one conversation: it validates a submission, sends the
// transcript to the completion endpoint and folds the streamed fragments
// back into the transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"home-assistant/internal/groq"
	"home-assistant/internal/logging"
	"home-assistant/internal/metrics"
	"home-assistant/internal/models"
	"home-assistant/internal/transcript"
)

type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Completer is the part of the completion client the session needs.
type Completer interface {
	IsConfigured() bool
	ChatCompletionStream(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatStream, error)
}

type Settings struct {
	Model        string
	SystemPrompt string
}

type Session struct {
	client   Completer
	store    *transcript.Store
	settings Settings

	mu          sync.Mutex
	state       State
	lastOutcome State
	cancel      context.CancelFunc
}

func NewSession(client Completer, store *transcript.Store, settings Settings) *Session {
	if settings.Model == "" {
		settings.Model = models.DefaultModel
	}
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = models.DefaultSystemPrompt
	}
	return &Session{
		client:      client,
		store:       store,
		settings:    settings,
		state:       StateIdle,
		lastOutcome: StateIdle,
	}
}

func (s *Session) Store() *transcript.Store {
	return s.store
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome is StateCompleted or StateFailed for the most recent request,
// StateIdle before the first one.
func (s *Session) LastOutcome() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Pending reports whether a request is in flight.
func (s *Session) Pending() bool {
	state := s.State()
	return state == StateSending || state == StateStreaming
}

// Cancel aborts the in-flight request, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Reset clears the transcript. It is refused while a request is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.store.Reset()
	s.lastOutcome = StateIdle
	return nil
}

// Check reports whether input would be accepted by Submit right now,
// without changing anything.
func (s *Session) Check(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkLocked(input)
}

func (s *Session) checkLocked(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}
	if s.state != StateIdle {
		return ErrBusy
	}
	if !s.client.IsConfigured() {
		return &ConfigurationError{
			Reason: "no Groq API key set; add api_key to the config file or export GROQ_API_KEY",
		}
	}
	return nil
}

// Submit runs one request/response cycle for input and blocks until the
// stream ends. Transport failures are appended to the transcript as an
// assistant message and also returned as *TransportError.
func (s *Session) Submit(ctx context.Context, input string) error {
	ctx, history, err := s.begin(ctx, input)
	if err != nil {
		metrics.CompletionRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		return err
	}

	start := time.Now()
	err = s.run(ctx, history, input)
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.CompletionRequests.WithLabelValues(metrics.OutcomeCompleted).Inc()
		s.transition(StateCompleted)
	case errors.Is(err, context.Canceled):
		metrics.CompletionRequests.WithLabelValues(metrics.OutcomeCanceled).Inc()
		logging.Info("Completion canceled")
		s.transition(StateFailed)
	default:
		metrics.CompletionRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		logging.Error("Completion failed: %v", err)
		s.store.Append(models.NewMessage(models.RoleAssistant, errorContent(failureReason(err))))
		s.transition(StateFailed)
	}

	return err
}

// begin performs the admission checks and the Idle → Sending transition in
// one critical section, so two submissions can never both pass.
func (s *Session) begin(ctx context.Context, input string) (context.Context, []models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(input); err != nil {
		return nil, nil, err
	}

	history := s.store.Messages()
	s.store.Append(models.NewMessage(models.RoleUser, input))

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.setStateLocked(StateSending)

	logging.Info("Submitting message: history=%d model=%s", len(history), s.settings.Model)
	return ctx, history, nil
}

func (s *Session) run(ctx context.Context, history []models.Message, input string) error {
	req := s.buildRequest(history, input)

	stream, err := s.client.ChatCompletionStream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer stream.Close()

	s.transition(StateStreaming)
	placeholder := models.NewMessage(models.RoleAssistant, "")
	s.store.Append(placeholder)

	var content strings.Builder
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			logging.Debug("Stream finished: %d chars", content.Len())
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Streaming: true, Err: err}
		}

		content.WriteString(fragment)
		s.store.UpdateContent(placeholder.ID, content.String())
	}
}

// failureReason strips the TransportError wrapper so the user sees the cause.
func failureReason(err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Err
	}
	return err
}

func (s *Session) buildRequest(history []models.Message, input string) groq.ChatCompletionRequest {
	messages := make([]groq.ChatMessage, 0, len(history)+2)
	messages = append(messages, groq.ChatMessage{Role: string(models.RoleSystem), Content: s.settings.SystemPrompt})
	for _, msg := range history {
		messages = append(messages, groq.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, groq.ChatMessage{Role: string(models.RoleUser), Content: input})

	return groq.ChatCompletionRequest{
		Model:    s.settings.Model,
		Messages: messages,
		Stream:   true,
	}
}

// transition is the single writer of the session state. Terminal states are
// recorded as the last outcome and the session returns to idle.
func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(to)
}

func (s *Session) setStateLocked(to State) {
	logging.Debug("Session state %s -> %s", s.state, to)

	switch to {
	case StateCompleted, StateFailed:
		s.lastOutcome = to
		s.state = StateIdle
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	default:
		s.state = to
	}
}
