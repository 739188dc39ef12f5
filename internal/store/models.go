package store

import (
	"time"

	"viewport-relay/internal/relay"
)

// snapshotRow mirrors the room_snapshots table; nullable columns cover rooms
// persisted before any location arrived or while the publisher slot is empty.
type snapshotRow struct {
	RoomID          string
	PublisherID     *string
	Lat             *float64
	Lng             *float64
	Zoom            *float64
	Tilt            *float64
	LocationTS      *int64
	SubscriberCount int
	UpdatedAt       time.Time
}

func (r snapshotRow) toSnapshot() relay.Snapshot {
	snap := relay.Snapshot{RoomID: r.RoomID, SubscriberCount: r.SubscriberCount}
	if r.PublisherID != nil {
		snap.PublisherID = *r.PublisherID
	}
	if r.Lat != nil && r.Lng != nil && r.Zoom != nil && r.Tilt != nil && r.LocationTS != nil {
		snap.Location = &relay.Location{
			Lat:       *r.Lat,
			Lng:       *r.Lng,
			Zoom:      *r.Zoom,
			Tilt:      *r.Tilt,
			Timestamp: *r.LocationTS,
		}
	}
	return snap
}
