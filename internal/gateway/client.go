package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/alumnet/server/internal/delivery"
	"github.com/alumnet/server/internal/stats"
	"github.com/alumnet/server/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024

	// authTimeout bounds how long an unauthenticated connection may stay
	// open before it is closed.
	authTimeout = 30 * time.Second
)

// Client is one realtime connection. It starts unauthenticated; the only
// event accepted in that state is authenticate. On success it becomes the
// user's presence entry until disconnect.
type Client struct {
	conn     *websocket.Conn
	gateway  *Gateway
	log      *log.Logger
	send     chan *types.ServerEvent
	stop     chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	authenticated bool
	userId        int
	authTimer     *time.Timer
}

func NewClient(conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	c := &Client{
		conn:    conn,
		gateway: gw,
		log:     l,
		send:    make(chan *types.ServerEvent, 256),
		stop:    make(chan struct{}),
	}

	c.authTimer = time.AfterFunc(authTimeout, func() {
		if !c.isAuthenticated() {
			c.log.Println("closing connection: authentication deadline reached")
			c.conn.Close()
		}
	})

	return c
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeEvent(event)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			// flush anything already queued, auth_error in particular,
			// before the connection goes away
			for {
				select {
				case event := <-c.send:
					bytes, err := serializeEvent(event)
					if err == nil {
						c.writeMessage(websocket.TextMessage, bytes)
					}
				default:
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var event types.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(ErrInvalidEvent(0))
			continue
		}

		c.dispatch(&event)
	}
}

func (c *Client) dispatch(event *types.ClientEvent) {
	switch {
	case event.Authenticate != nil:
		c.handleAuthenticate(event)
	case event.SendMessage != nil:
		c.handleSendMessage(event)
	case event.Typing != nil:
		c.handleTyping(event)
	case event.GetUnreadCount != nil:
		c.handleGetUnreadCount(event)
	default:
		c.queueEvent(ErrInvalidEvent(event.Id))
	}
}

func (c *Client) handleAuthenticate(event *types.ClientEvent) {
	if c.isAuthenticated() {
		c.queueEvent(ErrAlreadyAuthenticated(event.Id))
		return
	}

	userId, err := c.gateway.verifier.VerifyToken(event.Authenticate.Token)
	if err != nil {
		c.log.Println("authentication failed:", err)
		c.queueEvent(&types.ServerEvent{
			BaseEvent: types.BaseEvent{Id: event.Id, Timestamp: types.Now()},
			AuthError: &types.AuthError{Message: "invalid credentials"},
		})
		c.stopClient()
		return
	}

	c.setAuthenticated(userId)
	c.gateway.registry.Register(userId, c)
	c.gateway.stats.Incr(stats.AuthenticatedSessions)

	c.queueEvent(&types.ServerEvent{
		BaseEvent:     types.BaseEvent{Id: event.Id, Timestamp: types.Now()},
		Authenticated: &types.Authenticated{UserId: userId},
	})

	c.gateway.queueBroadcast(&types.ServerEvent{
		BaseEvent:  types.BaseEvent{Timestamp: types.Now()},
		UserOnline: &types.PresenceChange{UserId: userId},
	}, nil)

	go c.flushUnread()
}

// flushUnread pushes every stored unread message addressed to this user as
// a single batch. A reconnecting client may see messages it already has;
// it de-duplicates by external id.
func (c *Client) flushUnread() {
	dbMsgs, err := c.gateway.db.GetUnreadMessages(c.UserId())
	if err != nil {
		c.log.Println("GetUnreadMessages:", err)
		c.queueEvent(ErrInternalError(0))
		return
	}

	if len(dbMsgs) == 0 {
		return
	}

	batch := make([]types.Message, len(dbMsgs))
	for i, m := range dbMsgs {
		batch[i] = types.Message{
			Id:         m.Id,
			ExternalId: m.ExternalId,
			SenderId:   m.SenderId,
			ReceiverId: m.ReceiverId,
			Content:    m.Content,
			Read:       m.Read,
			Timestamp:  m.CreatedAt,
		}
	}

	if c.queueEvent(&types.ServerEvent{
		BaseEvent:      types.BaseEvent{Timestamp: types.Now()},
		UnreadMessages: batch,
	}) {
		c.gateway.stats.IncrBy(stats.UnreadFlushed, len(batch))
	}
}

func (c *Client) handleSendMessage(event *types.ClientEvent) {
	if !c.isAuthenticated() {
		c.queueEvent(ErrNotAuthenticated(event.Id))
		return
	}

	// confirmation comes back through the coordinator as message_sent
	_, err := c.gateway.sender.Send(c.UserId(), event.SendMessage.ReceiverId, event.SendMessage.Content)
	if err != nil {
		if errors.Is(err, delivery.ErrEmptyContent) || errors.Is(err, delivery.ErrMissingReceiver) {
			c.queueEvent(ErrBadRequest(event.Id, err.Error()))
			return
		}

		c.log.Println("send message:", err)
		c.queueEvent(ErrInternalError(event.Id))
	}
}

// handleTyping relays a typing indicator to the receiver's connection only,
// when one exists. Fire-and-forget: no acknowledgement, no persistence.
func (c *Client) handleTyping(event *types.ClientEvent) {
	if !c.isAuthenticated() {
		c.queueEvent(ErrNotAuthenticated(event.Id))
		return
	}

	if conn, ok := c.gateway.registry.Lookup(event.Typing.ReceiverId); ok {
		conn.Send(&types.ServerEvent{
			BaseEvent: types.BaseEvent{Timestamp: types.Now()},
			UserTyping: &types.UserTyping{
				UserId:   c.UserId(),
				IsTyping: event.Typing.IsTyping,
			},
		})
	}
}

func (c *Client) handleGetUnreadCount(event *types.ClientEvent) {
	if !c.isAuthenticated() {
		c.queueEvent(ErrNotAuthenticated(event.Id))
		return
	}

	count, err := c.gateway.db.CountUnread(c.UserId())
	if err != nil {
		c.log.Println("CountUnread:", err)
		c.queueEvent(ErrInternalError(event.Id))
		return
	}

	c.queueEvent(&types.ServerEvent{
		BaseEvent:   types.BaseEvent{Id: event.Id, Timestamp: types.Now()},
		UnreadCount: &types.UnreadCount{Count: count},
	})
}

// Send implements presence.Conn.
func (c *Client) Send(event *types.ServerEvent) bool {
	return c.queueEvent(event)
}

func (c *Client) UserId() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userId
}

func (c *Client) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Client) authState() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userId, c.authenticated
}

func (c *Client) setAuthenticated(userId int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authenticated = true
	c.userId = userId
	if c.authTimer != nil {
		c.authTimer.Stop()
	}
}

func (c *Client) queueEvent(event *types.ServerEvent) bool {
	select {
	case c.send <- event:
	default:
		c.log.Println("failed to queue event, channel is full")
		return false
	}

	return true
}

func serializeEvent(event *types.ServerEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	if userId, ok := c.authState(); ok {
		// only announce offline if this handle is still the registered
		// one; a superseded connection must not evict its replacement
		if c.gateway.registry.Unregister(userId, c) {
			c.gateway.queueBroadcast(&types.ServerEvent{
				BaseEvent:   types.BaseEvent{Timestamp: types.Now()},
				UserOffline: &types.PresenceChange{UserId: userId},
			}, nil)
		}
		c.gateway.stats.Decr(stats.AuthenticatedSessions)
	}

	c.gateway.deRegisterChan <- c
	c.stopClient()
}
