package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"crmhub/models"
)

// Topic is a named category of change event exchanged over the channel.
type Topic string

const (
	TopicLeadCreated       Topic = "lead_created"
	TopicLeadUpdated       Topic = "lead_updated"
	TopicLeadDeleted       Topic = "lead_deleted"
	TopicActivityAdded     Topic = "activity_added"
	TopicNoteUpdated       Topic = "note_updated"
	TopicNoteAdded         Topic = "note_added"
	TopicUserCreated       Topic = "user_created"
	TopicUserUpdated       Topic = "user_updated"
	TopicUserDeleted       Topic = "user_deleted"
	TopicUserEditing       Topic = "user_editing"
	TopicUserStoppedEditing Topic = "user_stopped_editing"
	TopicConnected         Topic = "connected"
	TopicUserMention       Topic = "user_mention"
)

var knownTopics = map[Topic]struct{}{
	TopicLeadCreated:        {},
	TopicLeadUpdated:        {},
	TopicLeadDeleted:        {},
	TopicActivityAdded:      {},
	TopicNoteUpdated:        {},
	TopicNoteAdded:          {},
	TopicUserCreated:        {},
	TopicUserUpdated:        {},
	TopicUserDeleted:        {},
	TopicUserEditing:        {},
	TopicUserStoppedEditing: {},
	TopicConnected:          {},
	TopicUserMention:        {},
}

// ValidTopic reports whether t belongs to the fixed topic enumeration.
func ValidTopic(t Topic) bool {
	_, ok := knownTopics[t]
	return ok
}

// Event is the unit of propagation. It carries no sequence number and no
// timestamp; consumers must not assume any cross-event ordering.
type Event struct {
	Topic        Topic           `json:"topic"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	OriginUserID string          `json:"origin_user_id,omitempty"`
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Topic)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Topic, err)
	}
	return nil
}

// Encode marshals the full envelope for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a wire frame into an Event and checks only the
// envelope: valid JSON and a non-empty topic. Topics outside the known
// enumeration pass through untouched; the relay forwards them verbatim and
// clients simply have no handlers registered for them.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Topic == "" {
		return Event{}, fmt.Errorf("decode event: missing topic")
	}
	return e, nil
}

// LeadUpdatedPayload carries the lead id plus the full updated entity.
type LeadUpdatedPayload struct {
	LeadID uuid.UUID   `json:"leadId"`
	Data   models.Lead `json:"data"`
}

// DeletedPayload is an id-only payload used for all deletion topics.
type DeletedPayload struct {
	ID uuid.UUID `json:"id"`
}

// ActivityAddedPayload carries the new activity and its author.
type ActivityAddedPayload struct {
	ActivityID uuid.UUID       `json:"activityId"`
	Data       models.Activity `json:"data"`
	UserID     uuid.UUID       `json:"userId"`
}

// NoteUpdatedPayload announces a note change on a lead. Content is optional:
// presence-driven saves include it, bare mutation commits may not.
type NoteUpdatedPayload struct {
	LeadID  uuid.UUID `json:"leadId"`
	UserID  uuid.UUID `json:"userId"`
	Content *string   `json:"content,omitempty"`
}

// EditingPayload announces that a user started or stopped editing a lead's
// notes. Advisory only; nothing enforces the lock.
type EditingPayload struct {
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
}

// ConnectedPayload is self-delivered by a channel client when its transport
// comes up.
type ConnectedPayload struct {
	UserID uuid.UUID `json:"userId"`
}

// MentionPayload notifies a user they were mentioned in a note or activity.
type MentionPayload struct {
	UserID  uuid.UUID `json:"userId"`
	LeadID  uuid.UUID `json:"leadId"`
	Message string    `json:"message"`
}

func mustEvent(topic Topic, origin uuid.UUID, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload types are plain structs; marshalling them cannot fail.
		panic(fmt.Sprintf("marshal %s payload: %v", topic, err))
	}
	e := Event{Topic: topic, Payload: raw}
	if origin != uuid.Nil {
		e.OriginUserID = origin.String()
	}
	return e
}

// NewLeadCreated builds a lead_created event carrying the full entity.
func NewLeadCreated(lead models.Lead, origin uuid.UUID) Event {
	return mustEvent(TopicLeadCreated, origin, lead)
}

// NewLeadUpdated builds a lead_updated event.
func NewLeadUpdated(lead models.Lead, origin uuid.UUID) Event {
	return mustEvent(TopicLeadUpdated, origin, LeadUpdatedPayload{LeadID: lead.ID, Data: lead})
}

// NewLeadDeleted builds an id-only lead_deleted event.
func NewLeadDeleted(id, origin uuid.UUID) Event {
	return mustEvent(TopicLeadDeleted, origin, DeletedPayload{ID: id})
}

// NewActivityAdded builds an activity_added event.
func NewActivityAdded(a models.Activity, origin uuid.UUID) Event {
	return mustEvent(TopicActivityAdded, origin, ActivityAddedPayload{ActivityID: a.ID, Data: a, UserID: a.UserID})
}

// NewNoteUpdated builds a note_updated event. content may be nil.
func NewNoteUpdated(leadID, userID uuid.UUID, content *string) Event {
	return mustEvent(TopicNoteUpdated, userID, NoteUpdatedPayload{LeadID: leadID, UserID: userID, Content: content})
}

// NewUserCreated builds a user_created event carrying the full entity.
func NewUserCreated(u models.User, origin uuid.UUID) Event {
	return mustEvent(TopicUserCreated, origin, u)
}

// NewUserUpdated builds a user_updated event carrying the full entity.
func NewUserUpdated(u models.User, origin uuid.UUID) Event {
	return mustEvent(TopicUserUpdated, origin, u)
}

// NewUserDeleted builds an id-only user_deleted event.
func NewUserDeleted(id, origin uuid.UUID) Event {
	return mustEvent(TopicUserDeleted, origin, DeletedPayload{ID: id})
}

// NewUserEditing builds a user_editing event for a lead's notes.
func NewUserEditing(leadID, userID uuid.UUID) Event {
	return mustEvent(TopicUserEditing, userID, EditingPayload{LeadID: leadID, UserID: userID})
}

// NewUserStoppedEditing builds a user_stopped_editing event.
func NewUserStoppedEditing(leadID, userID uuid.UUID) Event {
	return mustEvent(TopicUserStoppedEditing, userID, EditingPayload{LeadID: leadID, UserID: userID})
}

// NewConnected builds the connected event a client self-delivers on
// transport connect.
func NewConnected(userID uuid.UUID) Event {
	return mustEvent(TopicConnected, userID, ConnectedPayload{UserID: userID})
}

// NewUserMention builds a user_mention event.
func NewUserMention(m MentionPayload, origin uuid.UUID) Event {
	return mustEvent(TopicUserMention, origin, m)
}
