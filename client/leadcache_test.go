package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/models"
	"crmhub/realtime"
)

func TestLeadCachePatchInPlace(t *testing.T) {
	ch := NewChannel(uuid.New())
	cache := NewLeadCache(ch)
	t.Cleanup(cache.Close)

	a := models.Lead{ID: uuid.New(), Name: "Alpha", Status: models.LeadStatusNew}
	b := models.Lead{ID: uuid.New(), Name: "Beta", Status: models.LeadStatusNew}
	cache.Reset([]models.Lead{a, b})

	// Create prepends.
	c := models.Lead{ID: uuid.New(), Name: "Gamma", Status: models.LeadStatusNew}
	ch.Deliver(realtime.NewLeadCreated(c, uuid.New()))
	leads := cache.Leads()
	require.Len(t, leads, 3)
	assert.Equal(t, "Gamma", leads[0].Name)

	// Update replaces by id without reordering.
	updated := a
	updated.Status = models.LeadStatusQualified
	ch.Deliver(realtime.NewLeadUpdated(updated, uuid.New()))
	got, ok := cache.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, models.LeadStatusQualified, got.Status)
	assert.Equal(t, a.ID, cache.Leads()[1].ID)

	// Delete splices.
	ch.Deliver(realtime.NewLeadDeleted(b.ID, uuid.New()))
	_, ok = cache.Get(b.ID)
	assert.False(t, ok)
	assert.Len(t, cache.Leads(), 2)
}

func TestLeadCacheLastAppliedEventWins(t *testing.T) {
	ch := NewChannel(uuid.New())
	cache := NewLeadCache(ch)
	t.Cleanup(cache.Close)

	lead := models.Lead{ID: uuid.New(), Name: "Deal", Value: 100}
	cache.Reset([]models.Lead{lead})

	first := lead
	first.Value = 200
	second := lead
	second.Value = 300

	ch.Deliver(realtime.NewLeadUpdated(first, uuid.New()))
	ch.Deliver(realtime.NewLeadUpdated(second, uuid.New()))

	got, ok := cache.Get(lead.ID)
	require.True(t, ok)
	assert.Equal(t, int64(300), got.Value, "the last applied update wins")
}

func TestLeadCacheUnknownIDIsNoOp(t *testing.T) {
	ch := NewChannel(uuid.New())
	cache := NewLeadCache(ch)
	t.Cleanup(cache.Close)

	known := models.Lead{ID: uuid.New(), Name: "Known"}
	cache.Reset([]models.Lead{known})

	stranger := models.Lead{ID: uuid.New(), Name: "Stranger"}
	ch.Deliver(realtime.NewLeadUpdated(stranger, uuid.New()))
	ch.Deliver(realtime.NewLeadDeleted(uuid.New(), uuid.New()))

	leads := cache.Leads()
	require.Len(t, leads, 1)
	assert.Equal(t, known.ID, leads[0].ID)
}

func TestLeadCacheIgnoresEventsAfterClose(t *testing.T) {
	ch := NewChannel(uuid.New())
	cache := NewLeadCache(ch)
	cache.Reset(nil)
	cache.Close()

	ch.Deliver(realtime.NewLeadCreated(models.Lead{ID: uuid.New()}, uuid.New()))
	assert.Empty(t, cache.Leads())
}
