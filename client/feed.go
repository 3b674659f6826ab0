package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"crmhub/models"
	"crmhub/realtime"
)

// FeedLimit caps the live feed's local log.
const FeedLimit = 20

// FeedEntry is one line in the live activity feed, ordered by local receipt
// time only; no authoritative server timestamp exists.
type FeedEntry struct {
	Topic       realtime.Topic
	UserID      uuid.UUID
	LeadID      uuid.UUID
	LeadName    string
	Description string
	ReceivedAt  time.Time
}

// LiveFeed is a bounded-local-log reconciliation surface: every relevant
// inbound event is appended to the front and the log is truncated to
// FeedLimit entries. It never fetches anything.
type LiveFeed struct {
	ch *Channel

	mu      sync.Mutex
	entries []FeedEntry

	refs []HandlerRef
}

// NewLiveFeed builds the surface and subscribes it to the feed topics.
func NewLiveFeed(ch *Channel) *LiveFeed {
	s := &LiveFeed{ch: ch}
	s.refs = append(s.refs,
		ch.On(realtime.TopicLeadCreated, s.onLeadCreated),
		ch.On(realtime.TopicLeadUpdated, s.onLeadUpdated),
		ch.On(realtime.TopicActivityAdded, s.onActivityAdded),
		ch.On(realtime.TopicNoteUpdated, s.onNoteUpdated),
		ch.On(realtime.TopicConnected, s.onConnected),
	)
	return s
}

func (s *LiveFeed) push(entry FeedEntry) {
	entry.ReceivedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]FeedEntry{entry}, s.entries...)
	if len(s.entries) > FeedLimit {
		s.entries = s.entries[:FeedLimit]
	}
}

func (s *LiveFeed) onLeadCreated(e realtime.Event) {
	var lead models.Lead
	if err := e.DecodePayload(&lead); err != nil {
		return
	}
	s.push(FeedEntry{
		Topic:       e.Topic,
		UserID:      lead.CreatedBy,
		LeadID:      lead.ID,
		LeadName:    lead.Name,
		Description: fmt.Sprintf("Created new lead: %s", lead.Name),
	})
}

func (s *LiveFeed) onLeadUpdated(e realtime.Event) {
	var p realtime.LeadUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	entry := FeedEntry{
		Topic:       e.Topic,
		LeadID:      p.LeadID,
		LeadName:    p.Data.Name,
		Description: fmt.Sprintf("Updated lead: %s", p.Data.Name),
	}
	if origin, err := uuid.Parse(e.OriginUserID); err == nil {
		entry.UserID = origin
	}
	s.push(entry)
}

func (s *LiveFeed) onActivityAdded(e realtime.Event) {
	var p realtime.ActivityAddedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	s.push(FeedEntry{
		Topic:       e.Topic,
		UserID:      p.UserID,
		LeadID:      p.Data.LeadID,
		Description: fmt.Sprintf("Added %s activity", p.Data.Type),
	})
}

func (s *LiveFeed) onNoteUpdated(e realtime.Event) {
	var p realtime.NoteUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	s.push(FeedEntry{
		Topic:       e.Topic,
		UserID:      p.UserID,
		LeadID:      p.LeadID,
		Description: "Updated collaborative notes",
	})
}

func (s *LiveFeed) onConnected(e realtime.Event) {
	var p realtime.ConnectedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	s.push(FeedEntry{
		Topic:       e.Topic,
		UserID:      p.UserID,
		Description: "Joined the workspace",
	})
}

// Entries returns a copy of the log, most recent first.
func (s *LiveFeed) Entries() []FeedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FeedEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close unsubscribes all handlers.
func (s *LiveFeed) Close() {
	for _, ref := range s.refs {
		s.ch.Off(ref)
	}
	s.refs = nil
}
