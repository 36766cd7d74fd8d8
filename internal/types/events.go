package types

import "time"

// Events are exchanged over the realtime channel as a single JSON object
// with exactly one of the optional fields set.

type BaseEvent struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientEvent struct {
	BaseEvent
	Authenticate   *Authenticate   `json:"authenticate,omitempty"`
	SendMessage    *SendMessage    `json:"send_message,omitempty"`
	Typing         *Typing         `json:"typing,omitempty"`
	GetUnreadCount *GetUnreadCount `json:"get_unread_count,omitempty"`
}

type Authenticate struct {
	Token string `json:"token"`
}

type SendMessage struct {
	ReceiverId int    `json:"receiver_id"`
	Content    string `json:"content"`
}

type Typing struct {
	ReceiverId int  `json:"receiver_id"`
	IsTyping   bool `json:"is_typing"`
}

type GetUnreadCount struct{}

type ServerEvent struct {
	BaseEvent
	Response       *Response       `json:"response,omitempty"`
	Authenticated  *Authenticated  `json:"authenticated,omitempty"`
	AuthError      *AuthError      `json:"auth_error,omitempty"`
	UnreadMessages []Message       `json:"unread_messages,omitempty"`
	ReceiveMessage *Message        `json:"receive_message,omitempty"`
	MessageSent    *MessageSent    `json:"message_sent,omitempty"`
	UserTyping     *UserTyping     `json:"user_typing,omitempty"`
	UnreadCount    *UnreadCount    `json:"unread_count,omitempty"`
	UserOnline     *PresenceChange `json:"user_online,omitempty"`
	UserOffline    *PresenceChange `json:"user_offline,omitempty"`
}

// Response carries the outcome of a client event back to the connection
// that issued it.
type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

type Authenticated struct {
	UserId int `json:"user_id"`
}

type AuthError struct {
	Message string `json:"message"`
}

type MessageSent struct {
	ExternalId string    `json:"external_id"`
	ReceiverId int       `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type UserTyping struct {
	UserId   int  `json:"user_id"`
	IsTyping bool `json:"is_typing"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

type PresenceChange struct {
	UserId int `json:"user_id"`
}
