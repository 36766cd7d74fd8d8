package delivery

import (
	"errors"
	"fmt"
	"log"

	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/presence"
	"github.com/alumnet/server/internal/stats"
	"github.com/alumnet/server/internal/types"
	"github.com/teris-io/shortid"
)

var (
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrMissingReceiver = errors.New("receiver is required")
)

// Coordinator implements the send-message use case: persist first, then
// relay live if the receiver is connected. Both the REST handler and the
// websocket send_message event go through here, so there is a single
// authoritative send path.
type Coordinator struct {
	log      *log.Logger
	db       database.MessagingRepository
	registry *presence.Registry
	stats    stats.StatsProvider

	// overridable in tests
	generateShortId func() (string, error)
}

func NewCoordinator(logger *log.Logger, db database.MessagingRepository, registry *presence.Registry, statsProvider stats.StatsProvider) *Coordinator {
	statsProvider.RegisterMetric(stats.MessagesSent)
	statsProvider.RegisterMetric(stats.MessagesRelayed)

	return &Coordinator{
		log:             logger,
		db:              db,
		registry:        registry,
		stats:           statsProvider,
		generateShortId: shortid.Generate,
	}
}

// Send validates and persists a message, then relays it to the receiver's
// connection when one is registered. An offline receiver is not an error:
// the stored message is delivered in the receiver's next unread batch. The
// sender's own connection, if any, gets a message_sent confirmation whether
// or not the receiver was reachable.
func (dc *Coordinator) Send(senderId, receiverId int, content string) (types.Message, error) {
	if content == "" {
		return types.Message{}, ErrEmptyContent
	}
	if receiverId <= 0 {
		return types.Message{}, ErrMissingReceiver
	}

	externalId, err := dc.generateShortId()
	if err != nil {
		return types.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	// Durability point. If this fails nothing is relayed.
	dbMsg, err := dc.db.CreateMessage(database.CreateMessageParams{
		ExternalId: externalId,
		SenderId:   senderId,
		ReceiverId: receiverId,
		Content:    content,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	msg := types.Message{
		Id:         dbMsg.Id,
		ExternalId: dbMsg.ExternalId,
		SenderId:   dbMsg.SenderId,
		ReceiverId: dbMsg.ReceiverId,
		Content:    dbMsg.Content,
		Read:       dbMsg.Read,
		Timestamp:  dbMsg.CreatedAt,
	}

	dc.stats.Incr(stats.MessagesSent)

	if conn, ok := dc.registry.Lookup(receiverId); ok {
		if conn.Send(&types.ServerEvent{
			BaseEvent:      types.BaseEvent{Timestamp: types.Now()},
			ReceiveMessage: &msg,
		}) {
			dc.stats.Incr(stats.MessagesRelayed)
		} else {
			dc.log.Printf("dropped live relay to user %d, send queue full", receiverId)
		}
	}

	if conn, ok := dc.registry.Lookup(senderId); ok {
		conn.Send(&types.ServerEvent{
			BaseEvent: types.BaseEvent{Timestamp: types.Now()},
			MessageSent: &types.MessageSent{
				ExternalId: msg.ExternalId,
				ReceiverId: msg.ReceiverId,
				Content:    msg.Content,
				Timestamp:  msg.Timestamp,
			},
		})
	}

	return msg, nil
}
