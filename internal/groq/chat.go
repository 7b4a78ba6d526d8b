package groq

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"home-assistant/internal/logging"
	"home-assistant/internal/metrics"
)

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionStream sends req with streaming enabled and returns once the
// response headers are in. A non-success status is returned as *StatusError
// and no stream is opened. The caller must Close the returned stream.
func (c *Client) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest) (*ChatStream, error) {
	req.Stream = true

	resp, err := c.doRequest(ctx, http.MethodPost, "/chat/completions", req, "text/event-stream")
	if err != nil {
		return nil, fmt.Errorf("failed to make chat completion request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := newStatusError(resp)
		logging.Error("Chat completion rejected: status=%d body=%q", statusErr.StatusCode, statusErr.Body)
		return nil, statusErr
	}

	return NewChatStream(resp.Body), nil
}

const readBufferSize = 4096

// ChatStream yields content fragments from an event-stream body.
type ChatStream struct {
	body    io.ReadCloser
	lines   LineBuffer
	pending []string
	buf     []byte
	eof     bool

	closeOnce sync.Once
	closeErr  error
}

func NewChatStream(body io.ReadCloser) *ChatStream {
	return &ChatStream{
		body: body,
		buf:  make([]byte, readBufferSize),
	}
}

// Recv returns the next non-empty content fragment. It returns io.EOF once
// the body is exhausted. The [DONE] sentinel and malformed lines are skipped.
func (s *ChatStream) Recv() (string, error) {
	for {
		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]

			fragment, err := DecodeEventLine(line)
			if err != nil {
				metrics.StreamDecodeErrors.Inc()
				logging.Debug("Skipping malformed stream line: %v", err)
				continue
			}
			if fragment == "" {
				continue
			}

			metrics.StreamFragments.Inc()
			return fragment, nil
		}

		if s.eof {
			return "", io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.lines.Write(s.buf[:n])...)
		}
		if err == io.EOF {
			s.eof = true
			if rest, ok := s.lines.Flush(); ok {
				s.pending = append(s.pending, rest)
			}
			continue
		}
		if err != nil {
			return "", fmt.Errorf("error reading stream: %w", err)
		}
	}
}

// Close releases the response body. Safe to call more than once.
func (s *ChatStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
