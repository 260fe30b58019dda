// Package directory is the durable record of actors. Every read issued after a
// write within the same request observes that write: both implementations
// are synchronous and there is no replica in between.
package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

var ErrNotFound = apperr.New(apperr.NotFound, "actor not found")

// Field names a column that may be updated in place.
type Field string

const (
	FieldChannelID Field = "channel_id"
	FieldLocation  Field = "location"
)

// Store reads and writes one actor specialization. Lookups that match nothing
// return ErrNotFound.
type Store[A models.Account] interface {
	// New returns an empty record of the store's kind.
	New() A
	Kind() models.ActorKind

	FindByID(ctx context.Context, id uuid.UUID) (A, error)
	FindByEmail(ctx context.Context, email string) (A, error)
	FindByMobile(ctx context.Context, mobile string) (A, error)
	FindByEmailOrMobile(ctx context.Context, email, mobile string) (A, error)
	FindByChannel(ctx context.Context, channelID string) (A, error)

	// Save upserts the whole record. Unique collisions surface as an
	// apperr.Conflict naming only the field.
	Save(ctx context.Context, a A) error
	// UpdateField sets a single column on the record with the given id.
	UpdateField(ctx context.Context, id uuid.UUID, field Field, value any) error
	// ClearChannel unsets channel_id on whichever record holds channelID and
	// reports whether one did.
	ClearChannel(ctx context.Context, channelID string) (bool, error)
	// Near returns records whose location lies within maxMeters of center,
	// nearest first.
	Near(ctx context.Context, center geo.Point, maxMeters float64) ([]A, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
}

var ErrTokenNotFound = apperr.New(apperr.Unauthorized, "invalid or expired refresh token")
