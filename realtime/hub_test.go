package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/models"
)

func newTestConnection(id string) *Connection {
	return &Connection{
		ID:     id,
		UserID: uuid.New(),
		Send:   make(chan []byte, 8),
	}
}

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == want
	}, time.Second, 5*time.Millisecond)
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := startTestHub(t)

	conn := newTestConnection("c1")
	hub.RegisterConnection(conn)
	waitForCount(t, hub, 1)

	hub.UnregisterConnection(conn)
	waitForCount(t, hub, 0)

	// Send channel is closed on unregister.
	_, open := <-conn.Send
	assert.False(t, open)
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	hub := startTestHub(t)

	sender := newTestConnection("sender")
	other := newTestConnection("other")
	hub.RegisterConnection(sender)
	hub.RegisterConnection(other)
	waitForCount(t, hub, 2)

	hub.BroadcastExcept(sender.ID, []byte("frame"))

	select {
	case got := <-other.Send:
		assert.Equal(t, []byte("frame"), got)
	case <-time.After(time.Second):
		t.Fatal("other connection never received the frame")
	}

	select {
	case <-sender.Send:
		t.Fatal("sender must not receive its own frame")
	default:
	}
}

func TestPublishReachesAllConnections(t *testing.T) {
	hub := startTestHub(t)

	a := newTestConnection("a")
	b := newTestConnection("b")
	hub.RegisterConnection(a)
	hub.RegisterConnection(b)
	waitForCount(t, hub, 2)

	lead := models.Lead{ID: uuid.New(), Name: "Broadcast Lead"}
	hub.Publish(NewLeadCreated(lead, uuid.New()))

	for _, conn := range []*Connection{a, b} {
		select {
		case data := <-conn.Send:
			event, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, TopicLeadCreated, event.Topic)
		case <-time.After(time.Second):
			t.Fatalf("connection %s never received the published event", conn.ID)
		}
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	hub := startTestHub(t)

	slow := &Connection{ID: "slow", UserID: uuid.New(), Send: make(chan []byte)}
	fast := newTestConnection("fast")
	hub.RegisterConnection(slow)
	hub.RegisterConnection(fast)
	waitForCount(t, hub, 2)

	// Nobody drains slow.Send, so the non-blocking send fails and the
	// connection is evicted rather than stalling the fan-out.
	hub.BroadcastExcept("", []byte("frame"))

	assert.Equal(t, 1, hub.ConnectionCount())
	_, open := <-slow.Send
	assert.False(t, open)

	select {
	case got := <-fast.Send:
		assert.Equal(t, []byte("frame"), got)
	case <-time.After(time.Second):
		t.Fatal("fast connection should still receive frames")
	}
}

func TestCloseReleasesRegisteredConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := newTestConnection("c1")
	hub.RegisterConnection(conn)
	waitForCount(t, hub, 1)

	hub.Close()

	// The writer goroutine serving a connection ranges over Send; shutdown
	// must close the channel or that goroutine leaks.
	select {
	case _, open := <-conn.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel never closed after hub shutdown")
	}
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestEmitterNilHubIsNoOp(t *testing.T) {
	emitter := NewEmitter(nil)
	assert.NotPanics(t, func() {
		emitter.Emit(NewLeadDeleted(uuid.New(), uuid.New()))
	})

	var nilEmitter *Emitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(NewLeadDeleted(uuid.New(), uuid.New()))
	})
}

func TestEmitterPublishesThroughHub(t *testing.T) {
	hub := startTestHub(t)
	conn := newTestConnection("c")
	hub.RegisterConnection(conn)
	waitForCount(t, hub, 1)

	emitter := NewEmitter(hub)
	emitter.Emit(NewUserDeleted(uuid.New(), uuid.New()))

	select {
	case data := <-conn.Send:
		event, err := DecodeEvent(data)
		require.NoError(t, err)
		assert.Equal(t, TopicUserDeleted, event.Topic)
	case <-time.After(time.Second):
		t.Fatal("emitted event never reached the connection")
	}
}
