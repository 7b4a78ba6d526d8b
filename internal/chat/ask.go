package chat

import (
	"context"
	"fmt"
	"io"

	"home-assistant/internal/models"
	"home-assistant/internal/transcript"
)

// Ask submits input and writes the assistant's reply to w as it streams in.
// A failure message appended by the session is written as well.
func Ask(ctx context.Context, s *Session, input string, w io.Writer) error {
	events, unsubscribe := s.Store().Subscribe()

	p := &replyPrinter{w: w}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			p.handle(ev)
		}
	}()

	err := s.Submit(ctx, input)
	unsubscribe()
	<-done

	// Catch up on anything a full subscriber buffer dropped
	if p.target != "" {
		if msg, ok := s.Store().Get(p.target); ok {
			p.print(msg.Content)
		}
	}
	if p.target != "" {
		fmt.Fprintln(w)
	}
	return err
}

// replyPrinter writes only the part of an assistant message not yet
// written. Assistant content only ever grows by appending.
type replyPrinter struct {
	w       io.Writer
	target  string
	printed int
}

func (p *replyPrinter) handle(ev transcript.Event) {
	if ev.Message.Role != models.RoleAssistant {
		return
	}
	if ev.Kind == transcript.EventAppended {
		if p.printed > 0 {
			fmt.Fprintln(p.w)
		}
		p.target = ev.Message.ID
		p.printed = 0
	}
	if ev.Message.ID == p.target {
		p.print(ev.Message.Content)
	}
}

func (p *replyPrinter) print(content string) {
	if len(content) <= p.printed {
		return
	}
	io.WriteString(p.w, content[p.printed:])
	p.printed = len(content)
}
