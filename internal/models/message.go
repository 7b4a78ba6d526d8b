package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

func NewMessage(role Role, content string) Message {
	return Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// generateMessageID returns a time-ordered, collision-free identifier.
func generateMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		return "msg-" + uuid.NewString()
	}
	return "msg-" + id.String()
}
