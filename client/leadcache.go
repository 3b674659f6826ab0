package client

import (
	"sync"

	"github.com/google/uuid"

	"crmhub/models"
	"crmhub/realtime"
)

// LeadCache is a patch-in-place reconciliation surface: a local mirror of
// the lead list that other views consult for cheap id-to-lead lookups.
// Creates prepend, updates replace by id, deletes splice. An event whose id
// is unknown locally is a no-op; a missed event leaves the mirror desynced
// until the next Reset.
type LeadCache struct {
	ch *Channel

	mu    sync.Mutex
	leads []models.Lead

	refs []HandlerRef
}

// NewLeadCache builds the surface and subscribes it to the lead topics.
func NewLeadCache(ch *Channel) *LeadCache {
	s := &LeadCache{ch: ch}
	s.refs = append(s.refs,
		ch.On(realtime.TopicLeadCreated, s.onCreated),
		ch.On(realtime.TopicLeadUpdated, s.onUpdated),
		ch.On(realtime.TopicLeadDeleted, s.onDeleted),
	)
	return s
}

// Reset replaces the mirror with an authoritative snapshot.
func (s *LeadCache) Reset(leads []models.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = make([]models.Lead, len(leads))
	copy(s.leads, leads)
}

func (s *LeadCache) onCreated(e realtime.Event) {
	var lead models.Lead
	if err := e.DecodePayload(&lead); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append([]models.Lead{lead}, s.leads...)
}

func (s *LeadCache) onUpdated(e realtime.Event) {
	var p realtime.LeadUpdatedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == p.LeadID {
			s.leads[i] = p.Data
			return
		}
	}
	// Unknown id: silent no-op, reconciled by the next Reset.
}

func (s *LeadCache) onDeleted(e realtime.Event) {
	var p realtime.DeletedPayload
	if err := e.DecodePayload(&p); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == p.ID {
			s.leads = append(s.leads[:i:i], s.leads[i+1:]...)
			return
		}
	}
}

// Get returns the cached lead for id, if present.
func (s *LeadCache) Get(id uuid.UUID) (models.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.ID == id {
			return l, true
		}
	}
	return models.Lead{}, false
}

// Leads returns a copy of the mirror.
func (s *LeadCache) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// Close unsubscribes all handlers.
func (s *LeadCache) Close() {
	for _, ref := range s.refs {
		s.ch.Off(ref)
	}
	s.refs = nil
}
