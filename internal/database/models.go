package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id         int
	ExternalId string
	SenderId   int
	ReceiverId int
	Content    string
	Read       bool
	CreatedAt  time.Time
}

type ConversationSummary struct {
	Counterparty User
	LastMessage  Message
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateMessageParams struct {
	ExternalId string
	SenderId   int
	ReceiverId int
	Content    string
}
