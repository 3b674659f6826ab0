// Package client implements the browser-equivalent side of the realtime
// layer: the event channel wrapper and the reconciliation surfaces that
// keep local views in sync with inbound change events. The channel itself
// holds no view state; all state lives in the surfaces.
package client

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crmhub/realtime"
)

// Handler consumes one delivered event. Handlers for a topic run in
// registration order and to completion; they must not block on long
// synchronous work.
type Handler func(realtime.Event)

// HandlerRef identifies a single registration so Off can remove exactly
// that instance, even when the same function is registered twice.
type HandlerRef struct {
	topic realtime.Topic
	id    uint64
}

type subscription struct {
	id uint64
	fn Handler
}

// Channel wraps one persistent connection to the broadcast relay. Delivery
// is fire-and-forget and at-most-once; there is no buffering, no replay,
// and no ordering guarantee across topics. Emit always self-delivers to the
// local handlers, transport up or not.
type Channel struct {
	userID uuid.UUID

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[realtime.Topic][]subscription
	nextID   uint64

	// writeMu serializes socket writes; gorilla allows one writer at a time.
	writeMu sync.Mutex
}

// NewChannel creates a channel for one logical user session.
func NewChannel(userID uuid.UUID) *Channel {
	return &Channel{
		userID:   userID,
		handlers: make(map[realtime.Topic][]subscription),
	}
}

// UserID returns the identity this channel was created with.
func (c *Channel) UserID() uuid.UUID {
	return c.userID
}

// Connect dials the relay. A second call while connected is a no-op.
// There is no retry: reconnection policy is left to the caller.
func (c *Channel) Connect(url string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("connect relay: %w", err)
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	// The origin client learns of its own connection locally, without
	// waiting for any server echo.
	c.Deliver(realtime.NewConnected(c.userID))
	return nil
}

// Connected reports whether the transport is up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Disconnect tears down the transport. Handlers stay registered.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Close tears down the transport and drops every handler registration.
// The channel's lifecycle ends here; build a new one to reconnect.
func (c *Channel) Close() {
	c.Disconnect()
	c.mu.Lock()
	c.handlers = make(map[realtime.Topic][]subscription)
	c.mu.Unlock()
}

// On registers a handler for a topic. Multiple handlers per topic are
// supported; all are invoked in registration order.
func (c *Channel) On(topic realtime.Topic, fn Handler) HandlerRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	ref := HandlerRef{topic: topic, id: c.nextID}
	c.handlers[topic] = append(c.handlers[topic], subscription{id: ref.id, fn: fn})
	return ref
}

// Off removes exactly one registration. Safe to call during dispatch:
// a dispatch pass runs over a snapshot, so handlers already queued in the
// current pass still fire, and future passes do not include the removed one.
func (c *Channel) Off(ref HandlerRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[ref.topic]
	for i, s := range subs {
		if s.id == ref.id {
			c.handlers[ref.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit sends the event to the relay and synchronously invokes the local
// handlers for its topic. With the transport down the outbound send is
// silently dropped but local self-delivery still happens, so the origin
// client always observes its own optimistic event.
func (c *Channel) Emit(event realtime.Event) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if data, err := event.Encode(); err == nil {
			// The registration lock is not held across the network write, so
			// a slow send never stalls On/Off or inbound dispatch.
			c.writeMu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
			if err != nil {
				// Transport failure degrades to local-only delivery.
				log.Printf("channel emit dropped outbound %s: %v", event.Topic, err)
			}
		}
	}

	c.Deliver(event)
}

// Deliver dispatches an event to the locally registered handlers for its
// topic, in registration order, on the calling goroutine. The read loop is
// the only inbound caller, so inbound events are processed one at a time.
func (c *Channel) Deliver(event realtime.Event) {
	c.mu.Lock()
	subs := c.handlers[event.Topic]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	c.mu.Unlock()

	for _, s := range snapshot {
		s.fn(event)
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		event, err := realtime.DecodeEvent(data)
		if err != nil {
			// Malformed frames degrade to silent staleness, never a crash.
			continue
		}
		c.Deliver(event)
	}
}
