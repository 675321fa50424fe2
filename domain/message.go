package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoredMessage is a chat message as kept by the history store.
type StoredMessage struct {
	ID         uuid.UUID `json:"id"`
	SenderID   UserID    `json:"sender_id"`
	ReceiverID UserID    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewStoredMessage(sender, receiver UserID, content string, at time.Time) StoredMessage {
	return StoredMessage{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		CreatedAt:  at.UTC(),
	}
}
