package database

type MessagingRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetConversation(userA, userB int) ([]Message, error)
	GetUnreadMessages(userId int) ([]Message, error)
	MarkConversationRead(senderId, receiverId int) (int64, error)
	CountUnread(userId int) (int, error)
	GetConversationSummaries(userId int) ([]ConversationSummary, error)
	DeleteConversation(userA, userB int) (int64, error)
}
