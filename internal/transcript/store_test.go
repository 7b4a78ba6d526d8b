package transcript

import (
	"fmt"
	"sync"
	"testing"

	"home-assistant/internal/models"
)

func TestAppendKeepsCallOrder(t *testing.T) {
	s := NewStore()

	var want []string
	for i := 0; i < 50; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msg := models.NewMessage(role, fmt.Sprintf("message %d", i))
		want = append(want, msg.ID)
		s.Append(msg)
	}

	got := s.Messages()
	if len(got) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestUpdateContent(t *testing.T) {
	s := NewStore()
	user := models.NewMessage(models.RoleUser, "My dishwasher won't drain")
	assistant := models.NewMessage(models.RoleAssistant, "")
	s.Append(user)
	s.Append(assistant)

	if !s.UpdateContent(assistant.ID, "Let's troubleshoot") {
		t.Fatal("UpdateContent returned false for a known id")
	}

	got := s.Messages()
	if got[1].Content != "Let's troubleshoot" {
		t.Errorf("Expected updated content, got %q", got[1].Content)
	}
	if got[1].ID != assistant.ID || got[1].Role != models.RoleAssistant || !got[1].Timestamp.Equal(assistant.Timestamp) {
		t.Errorf("UpdateContent changed fields other than content: %+v", got[1])
	}
	if got[0] != user {
		t.Errorf("UpdateContent touched another message: %+v", got[0])
	}
}

func TestUpdateContentUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	msg := models.NewMessage(models.RoleUser, "hello")
	s.Append(msg)

	if s.UpdateContent("msg-missing", "changed") {
		t.Error("UpdateContent returned true for an unknown id")
	}

	got := s.Messages()
	if len(got) != 1 || got[0].Content != "hello" {
		t.Errorf("Store changed after unknown update: %+v", got)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append(models.NewMessage(models.RoleUser, "original"))

	snapshot := s.Messages()
	snapshot[0].Content = "mutated"

	if got := s.Messages()[0].Content; got != "original" {
		t.Errorf("Snapshot mutation leaked into store: %q", got)
	}
}

func TestResetClearsMessagesAndIndex(t *testing.T) {
	s := NewStore()
	msg := models.NewMessage(models.RoleAssistant, "")
	s.Append(msg)
	s.Reset()

	if s.Len() != 0 {
		t.Errorf("Expected empty store after reset, got %d", s.Len())
	}
	if s.UpdateContent(msg.ID, "late chunk") {
		t.Error("Update after reset should not find the old message")
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s := NewStore()
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	msg := models.NewMessage(models.RoleAssistant, "")
	s.Append(msg)
	s.UpdateContent(msg.ID, "Let's")
	s.Reset()

	want := []EventKind{EventAppended, EventUpdated, EventReset}
	for i, kind := range want {
		ev := <-events
		if ev.Kind != kind {
			t.Errorf("Event %d: expected kind %d, got %d", i, kind, ev.Kind)
		}
	}
}

func TestSubscriberOverflowDoesNotBlock(t *testing.T) {
	s := NewStore()
	_, unsubscribe := s.Subscribe()
	defer unsubscribe()

	msg := models.NewMessage(models.RoleAssistant, "")
	s.Append(msg)
	for i := 0; i < subscriberBuffer*4; i++ {
		s.UpdateContent(msg.ID, fmt.Sprintf("%d", i))
	}

	got, _ := s.Get(msg.ID)
	if got.Content != fmt.Sprintf("%d", subscriberBuffer*4-1) {
		t.Errorf("Unexpected final content %q", got.Content)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewStore()
	events, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("Expected closed channel after unsubscribe")
	}
	s.Append(models.NewMessage(models.RoleUser, "after"))
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := NewStore()
	assistant := models.NewMessage(models.RoleAssistant, "")
	s.Append(assistant)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.UpdateContent(assistant.ID, fmt.Sprintf("chunk %d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Append(models.NewMessage(models.RoleUser, "hi"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Messages()
		}
	}()
	wg.Wait()

	got := s.Messages()
	if len(got) != 201 {
		t.Fatalf("Expected 201 messages, got %d", len(got))
	}
	if got[0].ID != assistant.ID {
		t.Errorf("First message moved: %s", got[0].ID)
	}
}
