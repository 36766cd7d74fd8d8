package database

import (
	"time"
)

func (db *PgMessagingRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, created_at",
		accountParams.Username,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgMessagingRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgMessagingRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

// CreateMessage appends a message to the conversation log. The row is
// immutable after insert except for the read flag.
func (db *PgMessagingRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (external_id, sender_id, receiver_id, content, read, created_at) "+
			"VALUES ($1, $2, $3, $4, FALSE, $5) "+
			"RETURNING id, external_id, sender_id, receiver_id, content, read, created_at",
		params.ExternalId,
		params.SenderId,
		params.ReceiverId,
		params.Content,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ExternalId,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
	)

	return msg, err
}

// GetConversation returns all messages between two users in both directions,
// oldest first. Ties on created_at are broken by row id so the ordering is
// deterministic.
func (db *PgMessagingRepository) GetConversation(userA, userB int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, sender_id, receiver_id, content, read, created_at FROM messages "+
			"WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1) "+
			"ORDER BY created_at ASC, id ASC",
		userA,
		userB,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (db *PgMessagingRepository) GetUnreadMessages(userId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, sender_id, receiver_id, content, read, created_at FROM messages "+
			"WHERE receiver_id = $1 AND read = FALSE "+
			"ORDER BY created_at ASC, id ASC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkConversationRead flips the read flag on every unread message from
// senderId to receiverId. Re-invocation is a no-op when nothing is unread.
func (db *PgMessagingRepository) MarkConversationRead(senderId, receiverId int) (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE messages SET read = TRUE "+
			"WHERE sender_id = $1 AND receiver_id = $2 AND read = FALSE",
		senderId,
		receiverId,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgMessagingRepository) CountUnread(userId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = FALSE",
		userId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

// GetConversationSummaries returns the single most recent message per
// counterparty of userId, newest conversation first. Ties on identical
// timestamps are broken by row id, not insertion order.
func (db *PgMessagingRepository) GetConversationSummaries(userId int) ([]ConversationSummary, error) {
	query := `
		SELECT id, external_id, sender_id, receiver_id, content, read, created_at,
		       counterparty_id, username, email
		FROM (
			SELECT DISTINCT ON (m.counterparty_id)
			       m.id, m.external_id, m.sender_id, m.receiver_id, m.content, m.read, m.created_at,
			       m.counterparty_id, a.username, a.email
			FROM (
				SELECT *, CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS counterparty_id
				FROM messages
				WHERE sender_id = $1 OR receiver_id = $1
			) m
			JOIN accounts a ON a.id = m.counterparty_id
			ORDER BY m.counterparty_id, m.created_at DESC, m.id DESC
		) s
		ORDER BY s.created_at DESC, s.id DESC
`

	rows, err := db.conn.Query(query, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var s ConversationSummary
		if err = rows.Scan(
			&s.LastMessage.Id,
			&s.LastMessage.ExternalId,
			&s.LastMessage.SenderId,
			&s.LastMessage.ReceiverId,
			&s.LastMessage.Content,
			&s.LastMessage.Read,
			&s.LastMessage.CreatedAt,
			&s.Counterparty.Id,
			&s.Counterparty.Username,
			&s.Counterparty.EmailAddress,
		); err != nil {
			return nil, err
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// DeleteConversation physically removes every message between the pair and
// returns the number of rows removed. Irreversible.
func (db *PgMessagingRepository) DeleteConversation(userA, userB int) (int64, error) {
	res, err := db.conn.Exec(
		"DELETE FROM messages "+
			"WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)",
		userA,
		userB,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.ExternalId,
			&msg.SenderId,
			&msg.ReceiverId,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
