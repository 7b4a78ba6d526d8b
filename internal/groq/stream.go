package groq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	eventMarker = "data:"

	// DoneSentinel ends the logical event sequence. It is not JSON.
	DoneSentinel = "[DONE]"
)

// StreamChunk is one decoded event payload.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string  `json:"role,omitempty"`
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the first choice's delta content, if any.
func (c *StreamChunk) GetContent() (string, bool) {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *c.Choices[0].Delta.Content, true
}

// DecodeError reports an event line whose payload is not valid JSON.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed event payload %q: %v", truncate(e.Payload, 80), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeEventLine extracts the content fragment from one complete line.
// Lines without the data marker, the done sentinel and chunks without
// content all yield an empty fragment and no error.
func DecodeEventLine(line string) (string, error) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, eventMarker) {
		return "", nil
	}

	payload := strings.TrimPrefix(line[len(eventMarker):], " ")
	if strings.TrimSpace(payload) == DoneSentinel {
		return "", nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", &DecodeError{Payload: payload, Err: err}
	}

	content, _ := chunk.GetContent()
	return content, nil
}

// LineBuffer splits a byte stream into lines regardless of how the stream
// is cut into reads. The trailing partial line is carried over to the next
// Write.
type LineBuffer struct {
	carry []byte
}

// Write appends p and returns every line completed by it, without the
// newline.
func (b *LineBuffer) Write(p []byte) []string {
	var lines []string
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.carry = append(b.carry, p...)
			break
		}
		if len(b.carry) > 0 {
			b.carry = append(b.carry, p[:i]...)
			lines = append(lines, string(b.carry))
			b.carry = b.carry[:0]
		} else {
			lines = append(lines, string(p[:i]))
		}
		p = p[i+1:]
	}
	return lines
}

// Flush returns the unterminated remainder, if any, and empties the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.carry) == 0 {
		return "", false
	}
	rest := string(b.carry)
	b.carry = b.carry[:0]
	return rest, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
