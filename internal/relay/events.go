package relay

import "encoding/json"

// Wire message types, client->relay and relay->client.
const (
	MsgJoin             = "join"
	MsgLocationUpdate   = "location-update"
	MsgAck              = "ack"
	MsgRoomState        = "room-state"
	MsgPublisherJoined  = "publisher-joined"
	MsgPublisherLeft    = "publisher-left"
	MsgSubscriberJoined = "subscriber-joined"
	MsgSubscriberLeft   = "subscriber-left"
)

// Envelope is the frame every message travels in
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload; payloads here are plain structs so the
// marshal cannot fail in practice
func NewEnvelope(typ string, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Type: typ, Data: raw}
}

// JoinRequest is the client's join payload. All fields are required;
// a request missing any of them is dropped.
type JoinRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// LocationRequest is the publisher's raw update. Pointers distinguish a
// missing field from zero; tilt defaults to 0 when absent.
type LocationRequest struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Zoom *float64 `json:"zoom"`
	Tilt *float64 `json:"tilt,omitempty"`
}

// values validates the request and returns finite numbers only
func (r LocationRequest) values() (lat, lng, zoom, tilt float64, ok bool) {
	if r.Lat == nil || r.Lng == nil || r.Zoom == nil {
		return 0, 0, 0, 0, false
	}
	lat, lng, zoom = *r.Lat, *r.Lng, *r.Zoom
	if r.Tilt != nil {
		tilt = *r.Tilt
	}
	if !isFinite(lat) || !isFinite(lng) || !isFinite(zoom) || !isFinite(tilt) {
		return 0, 0, 0, 0, false
	}
	return lat, lng, zoom, tilt, true
}

// PublisherRef is the publisher's presence inside a room-state snapshot.
// Location is the room's last stored location, if any, so a late joiner or
// replacement publisher sees where the viewport last was.
type PublisherRef struct {
	ID       string    `json:"id"`
	Location *Location `json:"location,omitempty"`
}

// RoomState is the snapshot sent to every joiner
type RoomState struct {
	RoomID          string        `json:"roomId"`
	Publisher       *PublisherRef `json:"publisher,omitempty"`
	SubscriberCount int           `json:"subscriberCount"`
}

type PublisherEvent struct {
	PublisherID string `json:"publisherId"`
}

type SubscriberEvent struct {
	SubscriberID string `json:"subscriberId"`
}

// LocationEvent is the fan-out payload delivered to subscribers
type LocationEvent struct {
	PublisherID string   `json:"publisherId"`
	Location    Location `json:"location"`
}

// AckRequest is optional client telemetry; accepted and counted, nothing more
type AckRequest struct {
	PublisherID string `json:"publisherId"`
	Timestamp   int64  `json:"timestamp"`
}
