package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/models"
	"crmhub/realtime"
)

func TestNotificationCenterSuppressesOwnEvents(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	center := NewNotificationCenter(ch, me)
	t.Cleanup(center.Close)

	lead := models.Lead{ID: uuid.New(), Name: "Deal"}

	// My own update, echoed back or self-delivered: no toast.
	ch.Deliver(realtime.NewLeadUpdated(lead, me))
	assert.Empty(t, center.Notifications())

	// The same change made by someone else: one notification.
	other := uuid.New()
	ch.Deliver(realtime.NewLeadUpdated(lead, other))
	notifications := center.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, other, notifications[0].UserID)
	assert.Equal(t, 1, center.UnreadCount())
}

func TestNotificationCenterActivityAndNoteSelfSuppression(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	center := NewNotificationCenter(ch, me)
	t.Cleanup(center.Close)

	mine := models.Activity{ID: uuid.New(), LeadID: uuid.New(), UserID: me, Type: models.ActivityCall}
	ch.Deliver(realtime.NewActivityAdded(mine, me))
	ch.Deliver(realtime.NewNoteUpdated(uuid.New(), me, nil))
	assert.Empty(t, center.Notifications())

	other := uuid.New()
	theirs := models.Activity{ID: uuid.New(), LeadID: uuid.New(), UserID: other, Type: models.ActivityMeeting}
	ch.Deliver(realtime.NewActivityAdded(theirs, other))
	ch.Deliver(realtime.NewNoteUpdated(uuid.New(), other, nil))
	assert.Len(t, center.Notifications(), 2)
}

// Suppression is per-surface: a self-originated update produces no toast
// but still patches the shared lead mirror.
func TestSelfOriginatedUpdateSuppressedButAppliedToCache(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	center := NewNotificationCenter(ch, me)
	t.Cleanup(center.Close)
	cache := NewLeadCache(ch)
	t.Cleanup(cache.Close)

	lead := models.Lead{ID: uuid.New(), Name: "Deal", Status: models.LeadStatusNew}
	cache.Reset([]models.Lead{lead})

	lead.Status = models.LeadStatusQualified
	ch.Deliver(realtime.NewLeadUpdated(lead, me))

	assert.Empty(t, center.Notifications())
	got, ok := cache.Get(lead.ID)
	require.True(t, ok)
	assert.Equal(t, models.LeadStatusQualified, got.Status)
}

func TestNotificationCenterReadTracking(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	center := NewNotificationCenter(ch, me)
	t.Cleanup(center.Close)

	other := uuid.New()
	for i := 0; i < 3; i++ {
		ch.Deliver(realtime.NewLeadUpdated(models.Lead{ID: uuid.New()}, other))
	}
	require.Equal(t, 3, center.UnreadCount())

	first := center.Notifications()[0]
	center.MarkRead(first.ID)
	assert.Equal(t, 2, center.UnreadCount())

	center.MarkAllRead()
	assert.Equal(t, 0, center.UnreadCount())

	center.Remove(first.ID)
	assert.Len(t, center.Notifications(), 2)
}

func TestNotificationCenterMentions(t *testing.T) {
	me := uuid.New()
	ch := NewChannel(me)
	center := NewNotificationCenter(ch, me)
	t.Cleanup(center.Close)

	author := uuid.New()
	mention := realtime.MentionPayload{UserID: author, LeadID: uuid.New(), Message: "look at this lead"}
	ch.Deliver(realtime.NewUserMention(mention, author))

	notifications := center.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "You were mentioned", notifications[0].Title)
	assert.Equal(t, "look at this lead", notifications[0].Message)

	// Mentioning someone in my own note does not notify me about myself.
	ch.Deliver(realtime.NewUserMention(realtime.MentionPayload{UserID: me, LeadID: uuid.New(), Message: "self"}, me))
	assert.Len(t, center.Notifications(), 1)
}
