package relay

import "context"

// Snapshot is the durable representation of a room: publisher identity and
// last known location, used only for cold-start continuity. Always a copy,
// never a live reference.
type Snapshot struct {
	RoomID          string
	PublisherID     string // empty when the publisher slot is vacant
	Location        *Location
	SubscriberCount int
}

// Gateway is the best-effort persistence collaborator. Every call may fail;
// the engine logs failures and never lets them touch the in-memory relay.
type Gateway interface {
	SaveRoomSnapshot(ctx context.Context, snap Snapshot) error
	LoadRoomSnapshot(ctx context.Context, roomID string) (Snapshot, bool, error)
	DeleteRoomSnapshot(ctx context.Context, roomID string) error
	AppendLocationEvent(ctx context.Context, roomID, publisherID string, loc Location) error
}

// Bus republishes accepted location updates to other relay instances
type Bus interface {
	PublishLocation(ctx context.Context, roomID string, env Envelope) error
}
