package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/raftaar/raftaar-backend/internal/config"
)

// CORS allows the configured origins. The login cookie is only shared with
// an explicit origin list; fiber rejects credentials with a wildcard.
func CORS(cfg *config.Config) fiber.Handler {
	origins := strings.TrimSpace(cfg.CORSOrigins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Request-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Retry-After, X-Request-ID",
		AllowCredentials: origins != "*" && !strings.Contains(origins, "*"),
	})
}
