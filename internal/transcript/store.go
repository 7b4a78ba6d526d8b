// Package transcript holds the ordered message log of one chat session.
//
// The stream loop writes to the store from its own goroutine while the UI
// reads snapshots, so every operation takes the store lock. Messages are
// only ever appended; positions never change until Reset.
package transcript

import (
	"sync"

	"home-assistant/internal/models"
)

type EventKind int

const (
	EventAppended EventKind = iota
	EventUpdated
	EventReset
)

// Event describes one change to the store. Message is the state of the
// affected message right after the change (zero for EventReset).
type Event struct {
	Kind    EventKind
	Message models.Message
}

const subscriberBuffer = 64

type Store struct {
	mu          sync.RWMutex
	messages    []models.Message
	index       map[string]int
	subscribers map[int]chan Event
	nextSubID   int
}

func NewStore() *Store {
	return &Store{
		messages:    make([]models.Message, 0),
		index:       make(map[string]int),
		subscribers: make(map[int]chan Event),
	}
}

// Append adds msg at the end of the transcript.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	s.publish(Event{Kind: EventAppended, Message: msg})
}

// UpdateContent replaces the content of the message with the given id.
// Unknown ids are ignored and reported by the false return.
func (s *Store) UpdateContent(id, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.messages[i].Content = content
	s.publish(Event{Kind: EventUpdated, Message: s.messages[i]})
	return true
}

// Get returns the message with the given id.
func (s *Store) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Message{}, false
	}
	return s.messages[i], true
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Message, len(s.messages))
	copy(result, s.messages)
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Reset drops every message. It is the only way messages leave the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.index = make(map[string]int)
	s.publish(Event{Kind: EventReset})
}

// Subscribe registers a change listener. The returned function unsubscribes
// and closes the channel.
//
// Delivery never blocks a writer: when the subscriber's buffer is full the
// event is dropped. Subscribers are expected to re-read Messages on each
// event, so a dropped event is covered by the ones still queued.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// publish must be called with s.mu held.
func (s *Store) publish(ev Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
