package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"viewport-relay/pkg/metrics"
)

// Policy decides what happens when a second connection declares the
// publisher role for a room that already has one.
type Policy string

const (
	// PolicyTakeover installs the newcomer and silently displaces the
	// incumbent; the incumbent's further updates fail the identity check.
	PolicyTakeover Policy = "takeover"
	// PolicyReject keeps the incumbent; the newcomer only receives the
	// room-state snapshot.
	PolicyReject Policy = "reject"
)

// Config carries the engine's tunables
type Config struct {
	ThrottleInterval time.Duration
	Policy           Policy
}

// Engine orchestrates joins, location broadcasts, and leaves against the
// room registry. It exclusively owns the registry and all sessions; the
// transport layer only calls in, it never touches rooms directly.
type Engine struct {
	log      *slog.Logger
	reg      *Registry
	throttle *Throttle
	gateway  Gateway // nil disables persistence
	bus      Bus     // nil disables cross-instance fanout
	policy   Policy
	now      func() time.Time

	wg sync.WaitGroup // in-flight persistence and bus calls
}

func NewEngine(log *slog.Logger, gateway Gateway, bus Bus, cfg Config) *Engine {
	if cfg.Policy == "" {
		cfg.Policy = PolicyTakeover
	}
	return &Engine{
		log:      log,
		reg:      NewRegistry(),
		throttle: NewThrottle(cfg.ThrottleInterval),
		gateway:  gateway,
		bus:      bus,
		policy:   cfg.Policy,
		now:      time.Now,
	}
}

// Join places the session into the requested room with the declared role.
// A request missing any field is dropped without a response.
func (e *Engine) Join(ctx context.Context, s *Session, req JoinRequest) {
	role, ok := ParseRole(req.Role)
	if req.RoomID == "" || req.UserID == "" || !ok {
		metrics.JoinsDropped.Inc()
		return
	}

	// A connection belongs to at most one room; re-joining abandons the
	// previous membership, same room included (role switches re-enter).
	if s.RoomID != "" {
		e.Leave(ctx, s)
	}

	s.UserID = req.UserID
	s.Role = role

	var rm *Room
	var installed bool
	for {
		var created bool
		rm, created = e.reg.GetOrCreate(req.RoomID)
		if created {
			e.restoreSnapshot(ctx, rm)
		}
		var retry bool
		installed, retry = e.install(rm, s)
		if !retry {
			break
		}
		// Lost a race against RemoveIfEmpty; the key is free again.
	}
	metrics.ActiveRooms.Set(float64(e.reg.Len()))

	if installed {
		switch role {
		case RolePublisher:
			rm.broadcast(NewEnvelope(MsgPublisherJoined, PublisherEvent{PublisherID: s.UserID}), s)
		case RoleSubscriber:
			rm.broadcast(NewEnvelope(MsgSubscriberJoined, SubscriberEvent{SubscriberID: s.UserID}), s)
			// Catch-up: a fresh subscriber sees the publisher's position
			// now, not at the next tick.
			if pubID, ok := rm.publisherID(); ok {
				if loc, ok := rm.location(); ok {
					s.Send(NewEnvelope(MsgLocationUpdate, LocationEvent{PublisherID: pubID, Location: loc}))
				}
			}
		}
	}

	// The joiner always gets the snapshot, a rejected publisher included.
	s.Send(NewEnvelope(MsgRoomState, rm.State()))
	e.log.Debug("relay.join", "room", req.RoomID, "user", req.UserID, "role", role, "installed", installed)
	if installed {
		e.saveAsync(rm)
	}
}

// install binds the session to the room per its role. retry=true means the
// room was deleted underneath us and the join must run again; a rejected
// publisher gets installed=false with no retry.
func (e *Engine) install(rm *Room, s *Session) (installed, retry bool) {
	switch s.Role {
	case RolePublisher:
		switch rm.installPublisher(s, e.policy) {
		case installClosed:
			return false, true
		case installRejected:
			e.log.Debug("relay.join.publisher_rejected", "room", rm.ID(), "user", s.UserID)
			return false, false
		}
		s.RoomID = rm.ID()
		return true, false
	default:
		if !rm.addSubscriber(s) {
			return false, true
		}
		s.RoomID = rm.ID()
		return true, false
	}
}

// Broadcast runs the publisher's update through the precondition chain and
// fans it out. Every failure is a silent no-op: the next tick supersedes a
// dropped update, so nothing is reported back.
func (e *Engine) Broadcast(ctx context.Context, s *Session, req LocationRequest) {
	if s.RoomID == "" {
		metrics.UpdatesDropped.WithLabelValues("no_room").Inc()
		return
	}
	lat, lng, zoom, tilt, ok := req.values()
	if !ok {
		metrics.UpdatesDropped.WithLabelValues("malformed").Inc()
		return
	}
	if !e.throttle.Allow(s.ConnID) {
		metrics.UpdatesDropped.WithLabelValues("throttled").Inc()
		return
	}
	rm, ok := e.reg.Get(s.RoomID)
	if !ok {
		metrics.UpdatesDropped.WithLabelValues("no_room").Inc()
		return
	}

	// Server receipt time is the authoritative ordering clock; any
	// client-sent timestamp is discarded.
	loc := NewLocation(lat, lng, zoom, tilt, e.now().UnixMilli())
	if s.Role != RolePublisher || !rm.acceptLocation(s, loc) {
		metrics.UpdatesDropped.WithLabelValues("not_publisher").Inc()
		return
	}

	env := NewEnvelope(MsgLocationUpdate, LocationEvent{PublisherID: s.UserID, Location: loc})
	rm.fanoutSubscribers(env)
	metrics.UpdatesAccepted.Inc()

	if e.bus != nil {
		e.async(func(ctx context.Context) {
			if err := e.bus.PublishLocation(ctx, rm.ID(), env); err != nil {
				e.log.Error("bus.publish.fail", "room", rm.ID(), "err", err)
			}
		})
	}
	e.saveAsync(rm)
	e.appendEventAsync(rm.ID(), s.UserID, loc)
}

// Ack absorbs optional delivery telemetry from subscribers
func (e *Engine) Ack(s *Session, req AckRequest) {
	metrics.AcksReceived.Inc()
	e.log.Debug("relay.ack", "user", s.UserID, "publisher", req.PublisherID, "ts", req.Timestamp)
}

// Leave removes the session from its room, fires the departure event, and
// deletes the room if that left it empty. Safe to call any number of times;
// transport close and explicit leave both land here.
func (e *Engine) Leave(ctx context.Context, s *Session) {
	e.throttle.Forget(s.ConnID)
	roomID := s.RoomID
	if roomID == "" {
		return
	}
	s.RoomID = ""

	rm, ok := e.reg.Get(roomID)
	if !ok {
		return
	}
	removed, wasPublisher := rm.removeMember(s)
	if !removed {
		return
	}
	if wasPublisher {
		rm.broadcast(NewEnvelope(MsgPublisherLeft, PublisherEvent{PublisherID: s.UserID}), s)
	} else {
		rm.broadcast(NewEnvelope(MsgSubscriberLeft, SubscriberEvent{SubscriberID: s.UserID}), s)
	}

	if e.reg.RemoveIfEmpty(roomID) {
		e.deleteAsync(roomID)
	} else {
		e.saveAsync(rm)
	}
	metrics.ActiveRooms.Set(float64(e.reg.Len()))
	e.log.Debug("relay.leave", "room", roomID, "user", s.UserID, "publisher", wasPublisher)
}

// RoomState exposes a room's snapshot for the read API
func (e *Engine) RoomState(roomID string) (RoomState, bool) {
	rm, ok := e.reg.Get(roomID)
	if !ok {
		return RoomState{}, false
	}
	return rm.State(), true
}

// DeliverRemote fans out an envelope accepted by another relay instance to
// this instance's local subscribers.
func (e *Engine) DeliverRemote(roomID string, env Envelope) {
	if rm, ok := e.reg.Get(roomID); ok {
		rm.fanoutSubscribers(env)
	}
}

// Drain waits for in-flight persistence and bus calls; used at shutdown and
// by tests.
func (e *Engine) Drain() {
	e.wg.Wait()
}

// restoreSnapshot seeds a freshly created room from the durable store so a
// rejoin after restart inherits the last known location. In-memory state is
// never overruled: the seed lands only while the room has no location.
func (e *Engine) restoreSnapshot(ctx context.Context, rm *Room) {
	if e.gateway == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	snap, found, err := e.gateway.LoadRoomSnapshot(ctx, rm.ID())
	if err != nil {
		e.log.Error("snapshot.load.fail", "room", rm.ID(), "err", err)
		return
	}
	if found && snap.Location != nil {
		rm.seedLocation(*snap.Location)
	}
}

const persistTimeout = 5 * time.Second

// async runs fn off the critical path with its own bounded context
func (e *Engine) async(fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (e *Engine) saveAsync(rm *Room) {
	if e.gateway == nil {
		return
	}
	snap := rm.Snapshot() // copy taken before leaving the caller
	e.async(func(ctx context.Context) {
		if err := e.gateway.SaveRoomSnapshot(ctx, snap); err != nil {
			e.log.Error("snapshot.save.fail", "room", snap.RoomID, "err", err)
		}
	})
}

func (e *Engine) deleteAsync(roomID string) {
	if e.gateway == nil {
		return
	}
	e.async(func(ctx context.Context) {
		if err := e.gateway.DeleteRoomSnapshot(ctx, roomID); err != nil {
			e.log.Error("snapshot.delete.fail", "room", roomID, "err", err)
		}
	})
}

func (e *Engine) appendEventAsync(roomID, publisherID string, loc Location) {
	if e.gateway == nil {
		return
	}
	e.async(func(ctx context.Context) {
		if err := e.gateway.AppendLocationEvent(ctx, roomID, publisherID, loc); err != nil {
			e.log.Error("event.append.fail", "room", roomID, "err", err)
		}
	})
}
