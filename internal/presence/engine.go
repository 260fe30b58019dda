// Package presence binds realtime channels to actors and answers proximity
// queries over captain locations.
package presence

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

const EventCaptainLocation = "captain-location-update"

var (
	ErrInvalidLocation = &apperr.Error{Kind: apperr.Validation, Message: "Invalid location data", Field: "location"}
	ErrInvalidRadius   = &apperr.Error{Kind: apperr.Validation, Message: "radius must be a non-negative number of kilometers", Field: "radius"}
	ErrUnknownKind     = &apperr.Error{Kind: apperr.Validation, Message: "userType must be captain or rider", Field: "userType"}
)

// Transport delivers events to connected channels.
type Transport interface {
	// Emit reports whether channelID was connected.
	Emit(channelID, event string, payload any) bool
	Broadcast(event string, payload any)
}

// Binder persists channel bindings for one actor kind. Every
// directory.Store satisfies it.
type Binder interface {
	Kind() models.ActorKind
	UpdateField(ctx context.Context, id uuid.UUID, field directory.Field, value any) error
	ClearChannel(ctx context.Context, channelID string) (bool, error)
}

// LocationInput is a client-supplied point. Pointers distinguish an absent
// coordinate from zero.
type LocationInput struct {
	Ltd *float64 `json:"ltd"`
	Lng *float64 `json:"lng"`
}

func (l LocationInput) Point() (geo.Point, error) {
	if l.Ltd == nil || l.Lng == nil {
		return geo.Point{}, ErrInvalidLocation
	}
	p := geo.Point{Lat: *l.Ltd, Lng: *l.Lng}
	if !p.Valid() {
		return geo.Point{}, ErrInvalidLocation
	}
	return p, nil
}

type LocationUpdate struct {
	UserID   string    `json:"userId"`
	Location geo.Point `json:"location"`
}

type Engine struct {
	transport Transport
	binders   map[models.ActorKind]Binder
	captains  directory.Store[*models.Captain]
}

func New(transport Transport, binders []Binder, captains directory.Store[*models.Captain]) *Engine {
	byKind := make(map[models.ActorKind]Binder, len(binders))
	for _, b := range binders {
		byKind[b.Kind()] = b
	}
	return &Engine{transport: transport, binders: byKind, captains: captains}
}

// Join binds channelID to the actor, replacing any earlier binding.
func (e *Engine) Join(ctx context.Context, actorID uuid.UUID, kind models.ActorKind, channelID string) error {
	b, ok := e.binders[kind]
	if !ok {
		return ErrUnknownKind
	}
	if err := b.UpdateField(ctx, actorID, directory.FieldChannelID, channelID); err != nil {
		return err
	}
	slog.Info("channel joined", "actor_id", actorID.String(), "actor_kind", string(kind), "channel_id", channelID)
	return nil
}

// UpdateLocation stores a captain's point and fans it out to every channel.
func (e *Engine) UpdateLocation(ctx context.Context, actorID uuid.UUID, loc LocationInput) error {
	p, err := loc.Point()
	if err != nil {
		return err
	}
	if err := e.captains.UpdateField(ctx, actorID, directory.FieldLocation, p.Stored()); err != nil {
		return err
	}
	e.transport.Broadcast(EventCaptainLocation, LocationUpdate{UserID: actorID.String(), Location: p})
	return nil
}

// Disconnect clears whichever binding holds channelID. An unbound channel is
// not an error.
func (e *Engine) Disconnect(ctx context.Context, channelID string) error {
	for kind, b := range e.binders {
		cleared, err := b.ClearChannel(ctx, channelID)
		if err != nil {
			return err
		}
		if cleared {
			slog.Info("channel unbound", "actor_kind", string(kind), "channel_id", channelID)
		}
	}
	return nil
}

// FindCaptainsWithinRadius returns captains within radiusKm of the center,
// nearest first. No match yields an empty slice.
func (e *Engine) FindCaptainsWithinRadius(ctx context.Context, lat, lng, radiusKm float64) ([]*models.Captain, error) {
	center := geo.Point{Lat: lat, Lng: lng}
	if !center.Valid() {
		return nil, ErrInvalidLocation
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0 {
		return nil, ErrInvalidRadius
	}

	captains, err := e.captains.Near(ctx, center, geo.KilometersToMeters(radiusKm))
	if err != nil {
		return nil, err
	}
	if captains == nil {
		captains = []*models.Captain{}
	}
	return captains, nil
}

// SendToChannel pushes an event to one channel. Events for channels that
// are not connected are dropped.
func (e *Engine) SendToChannel(channelID, event string, payload any) {
	if !e.transport.Emit(channelID, event, payload) {
		slog.Debug("event dropped, channel not connected", "channel_id", channelID, "event", event)
	}
}
