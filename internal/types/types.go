package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	SenderId   int       `json:"sender_id"`
	ReceiverId int       `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConversationSummary is the most recent message exchanged with a single
// counterparty, used for conversation list views.
type ConversationSummary struct {
	Counterparty User    `json:"counterparty"`
	LastMessage  Message `json:"last_message"`
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
