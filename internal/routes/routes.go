package routes

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/raftaar/raftaar-backend/internal/config"
	"github.com/raftaar/raftaar-backend/internal/handlers"
	"github.com/raftaar/raftaar-backend/internal/middleware"
	"github.com/raftaar/raftaar-backend/internal/models"
)

type Handlers struct {
	Riders   *handlers.VerificationHandler[*models.User]
	Captains *handlers.VerificationHandler[*models.Captain]
	Maps     *handlers.MapsHandler
	Socket   *handlers.SocketHandler
	Health   *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	api.Get("/health", h.Health.Check)

	accountRoutes(api.Group("/users"), cfg, models.KindRider, h.Riders)
	accountRoutes(api.Group("/captains"), cfg, models.KindCaptain, h.Captains)

	m := api.Group("/maps")
	m.Get("/get-coordinates", h.Maps.GetCoordinates)
	m.Get("/get-address", h.Maps.GetAddress)
	m.Get("/get-distance-time", h.Maps.GetDistanceTime)
	m.Get("/get-suggestions", h.Maps.GetSuggestions)
	m.Get("/get-captains", middleware.JWTProtected(cfg), middleware.RequireKind(), h.Maps.GetCaptainsInRadius)

	// Websocket: JWT via header or ?token=, any actor kind
	app.Get("/ws",
		h.Socket.Upgrade,
		middleware.JWTProtectedSocket(cfg),
		middleware.RequireKind(),
		websocket.New(h.Socket.Serve),
	)
}

// accountRoutes mounts the verification flow for one actor kind. Public
// routes share a stricter limiter: 10 req/min per IP.
func accountRoutes[A models.Account](r fiber.Router, cfg *config.Config, kind models.ActorKind, h *handlers.VerificationHandler[A]) {
	strict := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})

	r.Post("/register", strict, h.Register)
	r.Post("/verify-email-otp", strict, h.VerifyEmail)
	r.Post("/verify-mobile-otp", strict, h.VerifyMobile)
	r.Post("/login", strict, h.Login)
	r.Post("/resend-otp", strict, h.ResendOTP)
	r.Post("/refresh", strict, h.Refresh)

	// Protected routes (JWT required, token kind must match)
	r.Post("/logout", middleware.JWTProtected(cfg), middleware.RequireKind(kind), h.Logout)
	r.Get("/profile", middleware.JWTProtected(cfg), middleware.RequireKind(kind), h.Profile)
}
