package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"crmhub/realtime"
)

// NoteSaver persists collaborative note content for a lead.
type NoteSaver func(ctx context.Context, leadID uuid.UUID, content string) error

// NotesView is the collaborative-notes surface for one lead. Content is
// reconciled from note_updated events (last write wins, no merge) and the
// edit affordance is gated by the advisory editing lock.
type NotesView struct {
	ch      *Channel
	leadID  uuid.UUID
	self    uuid.UUID
	tracker *EditingTracker
	save    NoteSaver

	mu           sync.Mutex
	content      string
	lastEditedBy uuid.UUID
	lastEditedAt time.Time
	editing      bool

	refs []HandlerRef
}

// NewNotesView builds the surface for one lead. The tracker is shared with
// the caller so multiple views can observe the same presence state.
func NewNotesView(ch *Channel, tracker *EditingTracker, leadID, self uuid.UUID, save NoteSaver) *NotesView {
	v := &NotesView{
		ch:      ch,
		leadID:  leadID,
		self:    self,
		tracker: tracker,
		save:    save,
	}
	v.refs = append(v.refs,
		ch.On(realtime.TopicNoteUpdated, v.onNoteUpdated),
	)
	return v
}

// SetContent seeds the local content from an initial fetch.
func (v *NotesView) SetContent(content string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.content = content
}

func (v *NotesView) onNoteUpdated(e realtime.Event) {
	var p realtime.NoteUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	if p.LeadID != v.leadID || p.UserID == v.self {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if p.Content != nil {
		v.content = *p.Content
	}
	v.lastEditedBy = p.UserID
	v.lastEditedAt = time.Now()
}

// StartEditing flips the view into edit mode and announces it. Returns
// false if another user holds the advisory lock; the caller may ignore
// that and edit anyway, since the lock is never enforced.
func (v *NotesView) StartEditing() bool {
	if v.tracker.LockedForSelf(v.leadID) {
		return false
	}
	v.mu.Lock()
	v.editing = true
	v.mu.Unlock()
	v.tracker.StartEditing(v.leadID)
	return true
}

// StopEditing leaves edit mode and withdraws the announcement.
func (v *NotesView) StopEditing() {
	v.mu.Lock()
	v.editing = false
	v.mu.Unlock()
	v.tracker.StopEditing(v.leadID)
}

// Save persists the content, emits note_updated with the new text, and
// leaves edit mode. The emit happens only after the save succeeds.
func (v *NotesView) Save(ctx context.Context, content string) error {
	if v.save != nil {
		if err := v.save(ctx, v.leadID, content); err != nil {
			return err
		}
	}
	v.mu.Lock()
	v.content = content
	v.lastEditedBy = v.self
	v.lastEditedAt = time.Now()
	v.mu.Unlock()

	v.ch.Emit(realtime.NewNoteUpdated(v.leadID, v.self, &content))
	v.StopEditing()
	return nil
}

// Content returns the current local content.
func (v *NotesView) Content() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.content
}

// LastEdit returns who last edited the note and when it was observed.
func (v *NotesView) LastEdit() (uuid.UUID, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastEditedBy, v.lastEditedAt
}

// Editing reports whether the local user is in edit mode.
func (v *NotesView) Editing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editing
}

// CanEdit reports whether the edit affordance should be enabled: true
// unless another user is announced as editing.
func (v *NotesView) CanEdit() bool {
	return !v.tracker.LockedForSelf(v.leadID)
}

// Close unsubscribes all handlers.
func (v *NotesView) Close() {
	for _, ref := range v.refs {
		v.ch.Off(ref)
	}
	v.refs = nil
}
