package database

import (
	"github.com/stretchr/testify/mock"
)

type MockMessagingRepository struct {
	mock.Mock
}

func (m *MockMessagingRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessagingRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockMessagingRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockMessagingRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockMessagingRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessagingRepository) GetConversation(userA, userB int) ([]Message, error) {
	args := m.Called(userA, userB)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockMessagingRepository) GetUnreadMessages(userId int) ([]Message, error) {
	args := m.Called(userId)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockMessagingRepository) MarkConversationRead(senderId, receiverId int) (int64, error) {
	args := m.Called(senderId, receiverId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessagingRepository) CountUnread(userId int) (int, error) {
	args := m.Called(userId)
	return args.Int(0), args.Error(1)
}

func (m *MockMessagingRepository) GetConversationSummaries(userId int) ([]ConversationSummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]ConversationSummary), args.Error(1)
}

func (m *MockMessagingRepository) DeleteConversation(userA, userB int) (int64, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(int64), args.Error(1)
}
