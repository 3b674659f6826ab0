package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"crmhub/realtime"
)

// EditingSession is the ephemeral record of who is editing a resource.
// It is never persisted: the map is reconstructed entirely from the event
// stream, so a client that connects mid-session learns nothing about edits
// already in progress.
type EditingSession struct {
	ResourceID uuid.UUID
	UserID     uuid.UUID
	StartedAt  time.Time
}

// EditingTracker is the advisory per-resource editing lock. StartEditing
// announces intent, StopEditing withdraws it; nothing on the server
// enforces mutual exclusion and the last save to commit still wins.
// There is no expiry: if an editor vanishes without announcing a stop, its
// session lingers for every observer until they remount.
type EditingTracker struct {
	ch   *Channel
	self uuid.UUID

	mu       sync.Mutex
	sessions map[uuid.UUID]EditingSession

	refs []HandlerRef
}

// NewEditingTracker builds a tracker for the local user and subscribes it
// to the presence topics.
func NewEditingTracker(ch *Channel, self uuid.UUID) *EditingTracker {
	t := &EditingTracker{
		ch:       ch,
		self:     self,
		sessions: make(map[uuid.UUID]EditingSession),
	}
	t.refs = append(t.refs,
		ch.On(realtime.TopicUserEditing, t.onEditing),
		ch.On(realtime.TopicUserStoppedEditing, t.onStoppedEditing),
	)
	return t
}

func (t *EditingTracker) onEditing(e realtime.Event) {
	var p realtime.EditingPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[p.LeadID] = EditingSession{
		ResourceID: p.LeadID,
		UserID:     p.UserID,
		StartedAt:  time.Now(),
	}
}

func (t *EditingTracker) onStoppedEditing(e realtime.Event) {
	var p realtime.EditingPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if session, ok := t.sessions[p.LeadID]; ok && session.UserID == p.UserID {
		delete(t.sessions, p.LeadID)
	}
}

// StartEditing announces that the local user began editing a resource.
// Self-delivery records the session locally even with the transport down.
func (t *EditingTracker) StartEditing(resourceID uuid.UUID) {
	t.ch.Emit(realtime.NewUserEditing(resourceID, t.self))
}

// StopEditing withdraws the local user's editing announcement.
func (t *EditingTracker) StopEditing(resourceID uuid.UUID) {
	t.ch.Emit(realtime.NewUserStoppedEditing(resourceID, t.self))
}

// EditingBy returns the user currently announced as editing the resource.
func (t *EditingTracker) EditingBy(resourceID uuid.UUID) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[resourceID]
	if !ok {
		return uuid.Nil, false
	}
	return session.UserID, true
}

// LockedForSelf reports whether someone other than the local user holds the
// advisory lock. The lock is cosmetic: a direct save still succeeds.
func (t *EditingTracker) LockedForSelf(resourceID uuid.UUID) bool {
	editor, ok := t.EditingBy(resourceID)
	return ok && editor != t.self
}

// Session returns the full editing session for a resource, if any.
func (t *EditingTracker) Session(resourceID uuid.UUID) (EditingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[resourceID]
	return session, ok
}

// Close unsubscribes all handlers. Local sessions are discarded with it.
func (t *EditingTracker) Close() {
	for _, ref := range t.refs {
		t.ch.Off(ref)
	}
	t.refs = nil
}
