package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/models"
)

// Locals keys set by RequireKind. They survive the websocket upgrade.
const (
	LocalActorID   = "actor_id"
	LocalActorKind = "actor_kind"
)

var (
	errInvalidToken = errors.New("invalid token in context")
	errMissingClaim = errors.New("missing claim")
)

// GetActorID extracts the actor UUID from JWT claims in context.
func GetActorID(c *fiber.Ctx) (uuid.UUID, error) {
	id, _, err := actorFromToken(c)
	return id, err
}

func actorFromToken(c *fiber.Ctx) (uuid.UUID, models.ActorKind, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", errMissingClaim
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", err
	}

	kind := models.ActorKind("")
	if k, ok := claims["kind"].(string); ok {
		kind = models.ActorKind(k)
	}
	if !kind.Valid() {
		return uuid.Nil, "", errMissingClaim
	}
	return id, kind, nil
}
