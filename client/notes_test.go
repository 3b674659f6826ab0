package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/realtime"
)

type fakeNoteSaver struct {
	mu      sync.Mutex
	saved   []string
	failErr error
}

func (s *fakeNoteSaver) save(_ context.Context, _ uuid.UUID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.saved = append(s.saved, content)
	return nil
}

func newNotesFixture(t *testing.T) (*Channel, *EditingTracker, *NotesView, *fakeNoteSaver, uuid.UUID) {
	t.Helper()
	me := uuid.New()
	leadID := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)
	saver := &fakeNoteSaver{}
	view := NewNotesView(ch, tracker, leadID, me, saver.save)
	t.Cleanup(func() {
		view.Close()
		tracker.Close()
	})
	return ch, tracker, view, saver, leadID
}

func TestNotesViewAppliesRemoteContent(t *testing.T) {
	ch, _, view, _, leadID := newNotesFixture(t)
	view.SetContent("initial")

	other := uuid.New()
	content := "remote edit"
	ch.Deliver(realtime.NewNoteUpdated(leadID, other, &content))

	assert.Equal(t, "remote edit", view.Content())
	editedBy, _ := view.LastEdit()
	assert.Equal(t, other, editedBy)
}

func TestNotesViewIgnoresOtherLeadsAndSelf(t *testing.T) {
	ch, _, view, _, leadID := newNotesFixture(t)
	view.SetContent("mine")

	otherLead := uuid.New()
	content := "unrelated"
	ch.Deliver(realtime.NewNoteUpdated(otherLead, uuid.New(), &content))
	assert.Equal(t, "mine", view.Content())

	// A self-originated echo must not reapply over local state.
	selfContent := "echo"
	ch.Deliver(realtime.NewNoteUpdated(leadID, ch.UserID(), &selfContent))
	assert.Equal(t, "mine", view.Content())
}

func TestNotesViewContentlessEventUpdatesAttribution(t *testing.T) {
	ch, _, view, _, leadID := newNotesFixture(t)
	view.SetContent("draft")

	other := uuid.New()
	ch.Deliver(realtime.NewNoteUpdated(leadID, other, nil))

	// Content untouched, but the edit attribution moves.
	assert.Equal(t, "draft", view.Content())
	editedBy, _ := view.LastEdit()
	assert.Equal(t, other, editedBy)
}

func TestNotesViewAdvisoryLock(t *testing.T) {
	ch, tracker, view, _, leadID := newNotesFixture(t)

	// Someone else is editing: the affordance is off and StartEditing
	// reports the conflict.
	other := uuid.New()
	ch.Deliver(realtime.NewUserEditing(leadID, other))
	assert.False(t, view.CanEdit())
	assert.False(t, view.StartEditing())
	assert.False(t, view.Editing())

	// The lock is advisory only: a direct save still goes through.
	require.NoError(t, view.Save(context.Background(), "forced write"))
	assert.Equal(t, "forced write", view.Content())

	// Lock released: editing proceeds normally.
	ch.Deliver(realtime.NewUserStoppedEditing(leadID, other))
	assert.True(t, view.StartEditing())
	assert.True(t, view.Editing())
	editor, ok := tracker.EditingBy(leadID)
	require.True(t, ok)
	assert.Equal(t, ch.UserID(), editor)
}

func TestNotesViewSavePersistsBeforeEmit(t *testing.T) {
	ch, _, view, saver, leadID := newNotesFixture(t)

	var emitted []realtime.Event
	ch.On(realtime.TopicNoteUpdated, func(e realtime.Event) {
		emitted = append(emitted, e)
	})

	require.True(t, view.StartEditing())
	require.NoError(t, view.Save(context.Background(), "final text"))

	assert.Equal(t, []string{"final text"}, saver.saved)
	assert.False(t, view.Editing(), "save leaves edit mode")

	require.Len(t, emitted, 1)
	var p realtime.NoteUpdatedPayload
	require.NoError(t, emitted[0].DecodePayload(&p))
	assert.Equal(t, leadID, p.LeadID)
	require.NotNil(t, p.Content)
	assert.Equal(t, "final text", *p.Content)
}

func TestNotesViewFailedSaveEmitsNothing(t *testing.T) {
	ch, _, view, saver, _ := newNotesFixture(t)
	saver.failErr = errors.New("db down")

	emitted := 0
	ch.On(realtime.TopicNoteUpdated, func(realtime.Event) { emitted++ })

	view.SetContent("before")
	err := view.Save(context.Background(), "after")
	require.Error(t, err)
	assert.Equal(t, "before", view.Content(), "failed save leaves content untouched")
	assert.Zero(t, emitted, "no event without a committed mutation")
}
