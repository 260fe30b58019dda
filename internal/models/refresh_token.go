package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a rotation record for one issued refresh token. Only the
// sha256 of the raw token is stored.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ActorID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_refresh_tokens_actor"`
	ActorKind ActorKind  `gorm:"size:20;not null;index:idx_refresh_tokens_actor"`
	TokenHash string     `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// Active reports whether the token may still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
