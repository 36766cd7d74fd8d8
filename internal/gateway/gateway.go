package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/alumnet/server/internal/auth"
	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/presence"
	"github.com/alumnet/server/internal/stats"
	"github.com/alumnet/server/internal/types"
)

// MessageSender is the delivery coordinator contract consumed by the
// gateway's send_message event.
type MessageSender interface {
	Send(senderId, receiverId int, content string) (types.Message, error)
}

type broadcastReq struct {
	event *types.ServerEvent
	skip  *Client
}

// Gateway owns the realtime connection lifecycle: it tracks open
// connections, relays broadcasts, and hands authenticated clients to the
// presence registry.
type Gateway struct {
	log      *log.Logger
	db       database.MessagingRepository
	registry *presence.Registry
	sender   MessageSender
	verifier auth.TokenVerifier
	stats    stats.StatsProvider

	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	broadcastChan  chan *broadcastReq
	stop           chan struct{}
	done           chan struct{}
}

func NewGateway(logger *log.Logger, db database.MessagingRepository, registry *presence.Registry, sender MessageSender, verifier auth.TokenVerifier, statsProvider stats.StatsProvider) (*Gateway, error) {
	statsProvider.RegisterMetric(stats.ActiveConnections)
	statsProvider.RegisterMetric(stats.AuthenticatedSessions)
	statsProvider.RegisterMetric(stats.UnreadFlushed)

	return &Gateway{
		log:            logger,
		db:             db,
		registry:       registry,
		sender:         sender,
		verifier:       verifier,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		broadcastChan:  make(chan *broadcastReq, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (gw *Gateway) Run() {
	for {
		select {
		case client := <-gw.RegisterChan:
			gw.addClient(client)
			gw.stats.Incr(stats.ActiveConnections)
		case client := <-gw.deRegisterChan:
			gw.removeClient(client)
			gw.stats.Decr(stats.ActiveConnections)
		case req := <-gw.broadcastChan:
			gw.broadcast(req)
		case <-gw.stop:
			gw.log.Println("stopping connections")
			gw.clientsLock.Lock()
			for c := range gw.clients {
				c.stopClient()
			}
			gw.clientsLock.Unlock()

			close(gw.done)
			return
		}
	}
}

// queueBroadcast enqueues an event for delivery to every authenticated
// connection except skip.
func (gw *Gateway) queueBroadcast(event *types.ServerEvent, skip *Client) {
	select {
	case gw.broadcastChan <- &broadcastReq{event: event, skip: skip}:
	default:
		gw.log.Println("broadcast channel full, dropping event")
	}
}

func (gw *Gateway) broadcast(req *broadcastReq) {
	gw.clientsLock.Lock()
	defer gw.clientsLock.Unlock()

	for client := range gw.clients {
		if client == req.skip || !client.isAuthenticated() {
			continue
		}

		client.queueEvent(req.event)
	}
}

func (gw *Gateway) addClient(c *Client) {
	gw.clientsLock.Lock()
	defer gw.clientsLock.Unlock()
	gw.clients[c] = struct{}{}
}

func (gw *Gateway) removeClient(c *Client) {
	gw.clientsLock.Lock()
	defer gw.clientsLock.Unlock()
	delete(gw.clients, c)
}

func (gw *Gateway) Shutdown(ctx context.Context) error {
	gw.log.Println("received shutdown signal")
	close(gw.stop)

	select {
	case <-gw.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
