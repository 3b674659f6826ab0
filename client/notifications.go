package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"crmhub/realtime"
)

// Notification is one entry in the notification center.
type Notification struct {
	ID         uuid.UUID
	Topic      realtime.Topic
	Title      string
	Message    string
	UserID     uuid.UUID
	LeadID     uuid.UUID
	ReceivedAt time.Time
	Read       bool
}

// NotificationCenter turns inbound change events into user-facing
// notifications. Events whose origin is the local user are suppressed:
// the underlying list surfaces still update, but nobody needs a "you did X"
// toast for their own action.
type NotificationCenter struct {
	ch          *Channel
	currentUser uuid.UUID

	mu            sync.Mutex
	notifications []Notification

	refs []HandlerRef
}

// NewNotificationCenter builds the surface for the given local user.
func NewNotificationCenter(ch *Channel, currentUser uuid.UUID) *NotificationCenter {
	s := &NotificationCenter{ch: ch, currentUser: currentUser}
	s.refs = append(s.refs,
		ch.On(realtime.TopicLeadUpdated, s.onLeadUpdated),
		ch.On(realtime.TopicActivityAdded, s.onActivityAdded),
		ch.On(realtime.TopicNoteUpdated, s.onNoteUpdated),
		ch.On(realtime.TopicNoteAdded, s.onNoteUpdated),
		ch.On(realtime.TopicUserMention, s.onUserMention),
	)
	return s
}

func (s *NotificationCenter) selfOriginated(e realtime.Event) bool {
	return e.OriginUserID != "" && e.OriginUserID == s.currentUser.String()
}

func (s *NotificationCenter) push(n Notification) {
	n.ID = uuid.New()
	n.ReceivedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append([]Notification{n}, s.notifications...)
}

func (s *NotificationCenter) onLeadUpdated(e realtime.Event) {
	if s.selfOriginated(e) {
		return
	}
	var p realtime.LeadUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	n := Notification{
		Topic:   e.Topic,
		Title:   "Lead Updated",
		Message: fmt.Sprintf("Lead %s was updated", p.Data.Name),
		LeadID:  p.LeadID,
	}
	if origin, err := uuid.Parse(e.OriginUserID); err == nil {
		n.UserID = origin
	}
	s.push(n)
}

func (s *NotificationCenter) onActivityAdded(e realtime.Event) {
	var p realtime.ActivityAddedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	if p.UserID == s.currentUser {
		return
	}
	s.push(Notification{
		Topic:   e.Topic,
		Title:   "New Activity",
		Message: fmt.Sprintf("New %s activity added", p.Data.Type),
		UserID:  p.UserID,
		LeadID:  p.Data.LeadID,
	})
}

func (s *NotificationCenter) onNoteUpdated(e realtime.Event) {
	var p realtime.NoteUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	if p.UserID == s.currentUser {
		return
	}
	s.push(Notification{
		Topic:   e.Topic,
		Title:   "Note Updated",
		Message: "A collaborative note was updated",
		UserID:  p.UserID,
		LeadID:  p.LeadID,
	})
}

func (s *NotificationCenter) onUserMention(e realtime.Event) {
	var p realtime.MentionPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	// Mentions address the local user directly, so self-suppression keys on
	// the mention author, not the target.
	if s.selfOriginated(e) {
		return
	}
	s.push(Notification{
		Topic:   e.Topic,
		Title:   "You were mentioned",
		Message: p.Message,
		UserID:  p.UserID,
		LeadID:  p.LeadID,
	})
}

// Notifications returns a copy, most recent first.
func (s *NotificationCenter) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationCenter) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks one notification as read.
func (s *NotificationCenter) MarkRead(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead marks every notification as read.
func (s *NotificationCenter) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
}

// Remove deletes one notification.
func (s *NotificationCenter) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications = append(s.notifications[:i:i], s.notifications[i+1:]...)
			return
		}
	}
}

// Close unsubscribes all handlers.
func (s *NotificationCenter) Close() {
	for _, ref := range s.refs {
		s.ch.Off(ref)
	}
	s.refs = nil
}
