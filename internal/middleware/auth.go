package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/raftaar/raftaar-backend/internal/config"
	"github.com/raftaar/raftaar-backend/internal/dto"
	"github.com/raftaar/raftaar-backend/internal/models"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: unauthorized,
	})
}

// JWTProtectedSocket also accepts the token as ?token=, since browsers cannot
// set headers on a websocket handshake.
func JWTProtectedSocket(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup:  "header:Authorization,query:token",
		ErrorHandler: unauthorized,
	})
}

// RequireKind rejects tokens issued to a different actor kind and stores the
// actor identity in locals.
func RequireKind(kinds ...models.ActorKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, kind, err := actorFromToken(c)
		if err != nil {
			return unauthorized(c, err)
		}
		if len(kinds) > 0 && !containsKind(kinds, kind) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Forbidden: token belongs to a different account type",
			})
		}
		c.Locals(LocalActorID, id.String())
		c.Locals(LocalActorKind, string(kind))
		return c.Next()
	}
}

func containsKind(kinds []models.ActorKind, k models.ActorKind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

func unauthorized(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized: invalid or expired token",
	})
}
