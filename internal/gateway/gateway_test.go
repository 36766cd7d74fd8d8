package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestBroadcast(t *testing.T) {
	gw := newTestGateway(t, &database.MockMessagingRepository{}, &mockVerifier{}, nil)

	authenticated := newTestClient(t, gw)
	authenticated.setAuthenticated(1)
	skipped := newTestClient(t, gw)
	skipped.setAuthenticated(2)
	unauthenticated := newTestClient(t, gw)

	gw.addClient(authenticated)
	gw.addClient(skipped)
	gw.addClient(unauthenticated)

	gw.broadcast(&broadcastReq{
		event: &types.ServerEvent{
			BaseEvent:  types.BaseEvent{Timestamp: types.Now()},
			UserOnline: &types.PresenceChange{UserId: 3},
		},
		skip: skipped,
	})

	select {
	case event := <-authenticated.send:
		assert.NotNil(t, event.UserOnline, "expected broadcast at authenticated client")
	default:
		t.Error("expected authenticated client to receive the broadcast")
	}

	select {
	case event := <-skipped.send:
		t.Errorf("expected skipped client to receive nothing, got %+v", event)
	default:
	}

	select {
	case event := <-unauthenticated.send:
		t.Errorf("expected unauthenticated client to receive nothing, got %+v", event)
	default:
	}
}

func TestAddRemoveClient(t *testing.T) {
	gw := newTestGateway(t, &database.MockMessagingRepository{}, &mockVerifier{}, nil)
	c := newTestClient(t, gw)

	gw.addClient(c)
	assert.Contains(t, gw.clients, c, "expected client to be tracked")

	gw.removeClient(c)
	assert.NotContains(t, gw.clients, c, "expected client to be removed")
}

func TestRunAndShutdown(t *testing.T) {
	gw := newTestGateway(t, &database.MockMessagingRepository{}, &mockVerifier{}, nil)
	go gw.Run()

	c := newTestClient(t, gw)

	select {
	case gw.RegisterChan <- c:
	case <-time.After(time.Second):
		t.Fatal("timed out registering client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, gw.Shutdown(ctx), "expected shutdown to complete")

	select {
	case <-c.stop:
		// client stop channel closed on shutdown
	default:
		t.Error("expected client stop channel to be closed on shutdown")
	}
}
