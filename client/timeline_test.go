package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/models"
	"crmhub/realtime"
)

type fakeTimelineStore struct {
	mu         sync.Mutex
	activities []models.Activity
	notes      []models.Note
	calls      int
}

func (s *fakeTimelineStore) fetch(_ context.Context, _ uuid.UUID) ([]models.Activity, []models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	activities := make([]models.Activity, len(s.activities))
	copy(activities, s.activities)
	notes := make([]models.Note, len(s.notes))
	copy(notes, s.notes)
	return activities, notes, nil
}

func (s *fakeTimelineStore) set(activities []models.Activity, notes []models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = activities
	s.notes = notes
}

func (s *fakeTimelineStore) fetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestActivityTimelineReloadsOnMatchingLead(t *testing.T) {
	ch := NewChannel(uuid.New())
	leadID := uuid.New()
	store := &fakeTimelineStore{}

	timeline := NewActivityTimeline(ch, leadID, store.fetch)
	t.Cleanup(timeline.Close)
	require.NoError(t, timeline.Load(context.Background()))

	activity := models.Activity{ID: uuid.New(), LeadID: leadID, UserID: uuid.New(), Type: models.ActivityCall, Title: "Follow up"}
	store.set([]models.Activity{activity}, nil)
	ch.Deliver(realtime.NewActivityAdded(activity, activity.UserID))

	require.Eventually(t, func() bool {
		got := timeline.Activities()
		return len(got) == 1 && got[0].ID == activity.ID && !timeline.Stale()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestActivityTimelineIgnoresOtherLeads(t *testing.T) {
	ch := NewChannel(uuid.New())
	leadID := uuid.New()
	store := &fakeTimelineStore{}

	timeline := NewActivityTimeline(ch, leadID, store.fetch)
	t.Cleanup(timeline.Close)
	require.NoError(t, timeline.Load(context.Background()))
	baseline := store.fetchCalls()

	otherLead := uuid.New()
	activity := models.Activity{ID: uuid.New(), LeadID: otherLead, UserID: uuid.New(), Type: models.ActivityNote, Title: "Elsewhere"}
	ch.Deliver(realtime.NewActivityAdded(activity, activity.UserID))
	ch.Deliver(realtime.NewNoteUpdated(otherLead, uuid.New(), nil))

	// Give any stray reload a chance to fire before asserting.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, baseline, store.fetchCalls())
	assert.False(t, timeline.Stale())
}

func TestActivityTimelineReloadsOnNoteUpdated(t *testing.T) {
	ch := NewChannel(uuid.New())
	leadID := uuid.New()
	store := &fakeTimelineStore{}

	timeline := NewActivityTimeline(ch, leadID, store.fetch)
	t.Cleanup(timeline.Close)
	require.NoError(t, timeline.Load(context.Background()))

	note := models.Note{ID: uuid.New(), LeadID: leadID, UserID: uuid.New(), Content: "fresh note"}
	store.set(nil, []models.Note{note})
	ch.Deliver(realtime.NewNoteUpdated(leadID, note.UserID, nil))

	require.Eventually(t, func() bool {
		got := timeline.Notes()
		return len(got) == 1 && got[0].Content == "fresh note"
	}, 2*time.Second, 5*time.Millisecond)
}
