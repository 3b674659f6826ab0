package client

import (
	"context"
	"sync"

	"crmhub/models"
	"crmhub/realtime"
)

// LeadFetcher fetches the authoritative lead list from the backend.
type LeadFetcher func(ctx context.Context) ([]models.Lead, error)

// LeadList is a full-reload reconciliation surface: any relevant event
// marks the view stale and triggers a re-fetch that replaces local state
// wholesale. Overlapping reloads race; the last reload started wins.
type LeadList struct {
	ch    *Channel
	fetch LeadFetcher

	mu         sync.Mutex
	leads      []models.Lead
	stale      bool
	startedSeq uint64
	appliedSeq uint64

	refs []HandlerRef
}

// NewLeadList builds the surface and subscribes it to the lead topics.
// Call Close on teardown or stale handlers will keep receiving events.
func NewLeadList(ch *Channel, fetch LeadFetcher) *LeadList {
	s := &LeadList{ch: ch, fetch: fetch}
	s.refs = append(s.refs,
		ch.On(realtime.TopicLeadCreated, s.onLeadEvent),
		ch.On(realtime.TopicLeadUpdated, s.onLeadEvent),
		ch.On(realtime.TopicLeadDeleted, s.onLeadEvent),
	)
	return s
}

// Load performs the initial fetch, moving entities from absent to present.
func (s *LeadList) Load(ctx context.Context) error {
	leads, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.leads = leads
	s.stale = false
	s.mu.Unlock()
	return nil
}

func (s *LeadList) onLeadEvent(realtime.Event) {
	s.mu.Lock()
	s.stale = true
	s.startedSeq++
	seq := s.startedSeq
	s.mu.Unlock()

	// Handlers must not block; the refetch runs off the dispatch path.
	go s.reload(seq)
}

func (s *LeadList) reload(seq uint64) {
	leads, err := s.fetch(context.Background())
	if err != nil {
		// Leave the view stale; the next event retries.
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.appliedSeq {
		// A later-started reload already landed.
		return
	}
	s.appliedSeq = seq
	s.leads = leads
	s.stale = s.startedSeq != seq
}

// Leads returns a copy of the current view.
func (s *LeadList) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// Stale reports whether an event has arrived whose reload has not yet
// resolved.
func (s *LeadList) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Close unsubscribes all handlers.
func (s *LeadList) Close() {
	for _, ref := range s.refs {
		s.ch.Off(ref)
	}
	s.refs = nil
}
