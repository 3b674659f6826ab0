package client

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"crmhub/models"
	"crmhub/realtime"
)

// TimelineFetcher fetches a lead's activities and notes from the backend.
type TimelineFetcher func(ctx context.Context, leadID uuid.UUID) ([]models.Activity, []models.Note, error)

// ActivityTimeline is a full-reload surface scoped to one lead: any
// activity_added or note_updated event referencing the lead triggers a
// re-fetch of the whole timeline.
type ActivityTimeline struct {
	ch     *Channel
	leadID uuid.UUID
	fetch  TimelineFetcher

	mu         sync.Mutex
	activities []models.Activity
	notes      []models.Note
	stale      bool
	startedSeq uint64
	appliedSeq uint64

	refs []HandlerRef
}

// NewActivityTimeline builds the surface for one lead.
func NewActivityTimeline(ch *Channel, leadID uuid.UUID, fetch TimelineFetcher) *ActivityTimeline {
	s := &ActivityTimeline{ch: ch, leadID: leadID, fetch: fetch}
	s.refs = append(s.refs,
		ch.On(realtime.TopicActivityAdded, s.onActivityAdded),
		ch.On(realtime.TopicNoteUpdated, s.onNoteUpdated),
	)
	return s
}

// Load performs the initial fetch.
func (s *ActivityTimeline) Load(ctx context.Context) error {
	activities, notes, err := s.fetch(ctx, s.leadID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.activities = activities
	s.notes = notes
	s.stale = false
	s.mu.Unlock()
	return nil
}

func (s *ActivityTimeline) onActivityAdded(e realtime.Event) {
	var p realtime.ActivityAddedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	if p.Data.LeadID != s.leadID {
		return
	}
	s.markStaleAndReload()
}

func (s *ActivityTimeline) onNoteUpdated(e realtime.Event) {
	var p realtime.NoteUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	if p.LeadID != s.leadID {
		return
	}
	s.markStaleAndReload()
}

func (s *ActivityTimeline) markStaleAndReload() {
	s.mu.Lock()
	s.stale = true
	s.startedSeq++
	seq := s.startedSeq
	s.mu.Unlock()

	go s.reload(seq)
}

func (s *ActivityTimeline) reload(seq uint64) {
	activities, notes, err := s.fetch(context.Background(), s.leadID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.appliedSeq {
		return
	}
	s.appliedSeq = seq
	s.activities = activities
	s.notes = notes
	s.stale = s.startedSeq != seq
}

// Activities returns a copy of the current activity list.
func (s *ActivityTimeline) Activities() []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Notes returns a copy of the current note list.
func (s *ActivityTimeline) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Stale reports whether a reload is pending.
func (s *ActivityTimeline) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Close unsubscribes all handlers.
func (s *ActivityTimeline) Close() {
	for _, ref := range s.refs {
		s.ch.Off(ref)
	}
	s.refs = nil
}
