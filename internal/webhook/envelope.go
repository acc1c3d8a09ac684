package webhook

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// Envelope is one webhook delivery: a batch of events.
type Envelope struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is a single platform event inside a delivery.
type Event struct {
	// Type is the event type; only "message" events are handled.
	Type string `json:"type"`
	// Timestamp is epoch milliseconds assigned by the platform.
	Timestamp int64 `json:"timestamp"`
	// ReplyToken is the single-use token for replying to this event.
	ReplyToken string `json:"replyToken,omitempty"`
	// Source identifies where the event originated.
	Source Source `json:"source"`
	// Message carries the message payload for message-type events.
	Message Message `json:"message,omitempty"`
}

// Source identifies the chat scope an event came from.
type Source struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// Message is the message payload of a message event.
type Message struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// unknownConversation is the sentinel ID used when the source carries no
// identifier at all.
const unknownConversation = "unknown"

// ConversationID derives the history key for this event's source. The source
// fields are tried in fixed priority order: group, room, user.
func (e *Event) ConversationID() string {
	switch {
	case e.Source.GroupID != "":
		return "group:" + e.Source.GroupID
	case e.Source.RoomID != "":
		return "room:" + e.Source.RoomID
	case e.Source.UserID != "":
		return "user:" + e.Source.UserID
	default:
		return unknownConversation
	}
}

// ErrNoEvents is returned when a syntactically valid envelope lacks an
// events collection.
var ErrNoEvents = errors.New("webhook envelope has no events collection")

// ParseEnvelope decodes a raw webhook body. The whole request is rejected
// when the body is not a JSON object or the events collection is absent; an
// empty events array is a valid no-op delivery.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("webhook envelope is not valid JSON")
	}
	if !gjson.GetBytes(raw, "events").IsArray() {
		return nil, ErrNoEvents
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
