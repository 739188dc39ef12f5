package store

import (
	"context"
	"errors"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"viewport-relay/internal/app"
	"viewport-relay/internal/relay"
)

// Postgres is the durable side of the relay: best-effort room snapshots for
// cold-start continuity plus an append-only location history. Implements
// relay.Gateway; the engine logs failures and keeps going.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to postgres and returns a pool wrapper
func NewPostgres(ctx context.Context, cfg app.Config, log *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// SaveRoomSnapshot upserts the room's last known state
func (p *Postgres) SaveRoomSnapshot(ctx context.Context, snap relay.Snapshot) error {
	var pubID *string
	if snap.PublisherID != "" {
		pubID = &snap.PublisherID
	}
	var lat, lng, zoom, tilt *float64
	var ts *int64
	if loc := snap.Location; loc != nil {
		lat, lng, zoom, tilt, ts = &loc.Lat, &loc.Lng, &loc.Zoom, &loc.Tilt, &loc.Timestamp
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO room_snapshots (room_id, publisher_id, lat, lng, zoom, tilt, location_ts, subscriber_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (room_id) DO UPDATE SET
			publisher_id = EXCLUDED.publisher_id,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			zoom = EXCLUDED.zoom,
			tilt = EXCLUDED.tilt,
			location_ts = EXCLUDED.location_ts,
			subscriber_count = EXCLUDED.subscriber_count,
			updated_at = NOW()
	`, snap.RoomID, pubID, lat, lng, zoom, tilt, ts, snap.SubscriberCount)
	return err
}

// LoadRoomSnapshot fetches a room's durable state; found=false is not an error
func (p *Postgres) LoadRoomSnapshot(ctx context.Context, roomID string) (relay.Snapshot, bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT room_id, publisher_id, lat, lng, zoom, tilt, location_ts, subscriber_count, updated_at
		FROM room_snapshots
		WHERE room_id = $1
	`, roomID)

	var r snapshotRow
	err := row.Scan(&r.RoomID, &r.PublisherID, &r.Lat, &r.Lng, &r.Zoom, &r.Tilt, &r.LocationTS, &r.SubscriberCount, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return relay.Snapshot{}, false, nil
	}
	if err != nil {
		return relay.Snapshot{}, false, err
	}
	return r.toSnapshot(), true, nil
}

// DeleteRoomSnapshot drops the durable record of a deleted room
func (p *Postgres) DeleteRoomSnapshot(ctx context.Context, roomID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM room_snapshots WHERE room_id = $1`, roomID)
	return err
}

// AppendLocationEvent records one accepted update in the history table
func (p *Postgres) AppendLocationEvent(ctx context.Context, roomID, publisherID string, loc relay.Location) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO location_events (room_id, publisher_id, lat, lng, zoom, tilt, location_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, roomID, publisherID, loc.Lat, loc.Lng, loc.Zoom, loc.Tilt, loc.Timestamp)
	return err
}
