package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/realtime"
)

func TestEditingTrackerLockLifecycle(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)
	t.Cleanup(tracker.Close)

	leadID := uuid.New()
	editor := uuid.New()

	_, ok := tracker.EditingBy(leadID)
	assert.False(t, ok)

	ch.Deliver(realtime.NewUserEditing(leadID, editor))
	got, ok := tracker.EditingBy(leadID)
	require.True(t, ok)
	assert.Equal(t, editor, got)
	assert.True(t, tracker.LockedForSelf(leadID))

	ch.Deliver(realtime.NewUserStoppedEditing(leadID, editor))
	_, ok = tracker.EditingBy(leadID)
	assert.False(t, ok)
	assert.False(t, tracker.LockedForSelf(leadID))
}

func TestEditingTrackerOwnSessionIsNotALock(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)
	t.Cleanup(tracker.Close)

	leadID := uuid.New()
	tracker.StartEditing(leadID)

	// Self-delivery records the session even with no transport.
	got, ok := tracker.EditingBy(leadID)
	require.True(t, ok)
	assert.Equal(t, me, got)
	assert.False(t, tracker.LockedForSelf(leadID), "own session never locks self out")

	tracker.StopEditing(leadID)
	_, ok = tracker.EditingBy(leadID)
	assert.False(t, ok)
}

func TestEditingTrackerStopFromWrongUserIgnored(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)
	t.Cleanup(tracker.Close)

	leadID := uuid.New()
	editor := uuid.New()
	intruder := uuid.New()

	ch.Deliver(realtime.NewUserEditing(leadID, editor))
	ch.Deliver(realtime.NewUserStoppedEditing(leadID, intruder))

	got, ok := tracker.EditingBy(leadID)
	require.True(t, ok, "a stop from a different user must not clear the session")
	assert.Equal(t, editor, got)
}

// An editor that vanishes without announcing a stop leaves its session in
// place indefinitely; only remount (Close and rebuild) clears it.
func TestEditingSessionPersistsAfterEditorVanishes(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)

	leadID := uuid.New()
	crashed := uuid.New()
	ch.Deliver(realtime.NewUserEditing(leadID, crashed))

	// No stop ever arrives. The lock is still observed.
	assert.True(t, tracker.LockedForSelf(leadID))

	// Remount: a fresh tracker reconstructs only from events it sees.
	tracker.Close()
	fresh := NewEditingTracker(ch, me)
	t.Cleanup(fresh.Close)
	assert.False(t, fresh.LockedForSelf(leadID))
}

func TestEditingTrackerLatestAnnouncementWins(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	tracker := NewEditingTracker(ch, me)
	t.Cleanup(tracker.Close)

	leadID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	ch.Deliver(realtime.NewUserEditing(leadID, first))
	ch.Deliver(realtime.NewUserEditing(leadID, second))

	got, ok := tracker.EditingBy(leadID)
	require.True(t, ok)
	assert.Equal(t, second, got)

	// The displaced editor's stop no longer matches and changes nothing.
	ch.Deliver(realtime.NewUserStoppedEditing(leadID, first))
	got, ok = tracker.EditingBy(leadID)
	require.True(t, ok)
	assert.Equal(t, second, got)
}
