package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/raftaar/raftaar-backend/internal/config"
	"github.com/raftaar/raftaar-backend/internal/database"
	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/handlers"
	"github.com/raftaar/raftaar-backend/internal/logging"
	"github.com/raftaar/raftaar-backend/internal/maps"
	"github.com/raftaar/raftaar-backend/internal/middleware"
	"github.com/raftaar/raftaar-backend/internal/models"
	"github.com/raftaar/raftaar-backend/internal/notify"
	"github.com/raftaar/raftaar-backend/internal/presence"
	"github.com/raftaar/raftaar-backend/internal/realtime"
	"github.com/raftaar/raftaar-backend/internal/routes"
	"github.com/raftaar/raftaar-backend/internal/services"
)

func main() {
	root := &cobra.Command{
		Use:           "raftaar",
		Short:         "Rider and captain verification, proximity and realtime backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context()) },
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and websocket server",
			RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create tables and geospatial indexes, then exit",
			RunE:  func(*cobra.Command, []string) error { return migrate() },
		},
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func migrate() error {
	cfg := config.Load()
	logging.Setup(cfg.Debug)

	if err := database.Connect(cfg); err != nil {
		return err
	}
	defer database.Close()
	return database.Migrate()
}

// stores holds the backing stores picked at startup.
type stores struct {
	name     string
	users    directory.Store[*models.User]
	captains directory.Store[*models.Captain]
	tokens   directory.TokenStore
	binders  []presence.Binder
	ping     func() error
}

func serve(ctx context.Context) error {
	cfg := config.Load()
	logging.Setup(cfg.Debug)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	var (
		st        stores
		pgHandler *logging.PGHandler
		cleanup   *cron.Cron
	)

	if cfg.UseMemoryStore {
		users := directory.NewUserMemoryStore()
		captains := directory.NewCaptainMemoryStore()
		st = stores{
			name:     "memory",
			users:    users,
			captains: captains,
			tokens:   directory.NewMemoryTokenStore(),
			binders:  []presence.Binder{users, captains},
		}
		slog.Warn("using in-memory store, data is lost on restart")
	} else {
		if cfg.DBPassword == "" {
			slog.Error("DB_PASSWORD environment variable is required")
			os.Exit(1)
		}
		if err := database.Connect(cfg); err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgHandler = logging.NewPGHandler(database.DB)
		logging.Setup(cfg.Debug, pgHandler)

		var err error
		if cleanup, err = logging.StartCleanup(database.DB, cfg.LogRetention); err != nil {
			return err
		}

		users := directory.NewUserStore(database.DB)
		captains := directory.NewCaptainStore(database.DB)
		st = stores{
			name:     "postgres",
			users:    users,
			captains: captains,
			tokens:   directory.NewGormTokenStore(database.DB),
			binders:  []presence.Binder{users, captains},
			ping:     database.Ping,
		}
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	tokens := services.NewTokenIssuer(st.tokens, cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	vcfg := services.VerifierConfig{CountryCode: cfg.CountryCode, Cooldown: cfg.OTPCooldown}
	riders := services.NewVerifier(st.users, notifier, tokens, vcfg)
	captains := services.NewVerifier(st.captains, notifier, tokens, vcfg)

	// Realtime hub, relayed over Redis when several instances run
	hub := realtime.NewHub(cfg.SocketEventsPerSecond)
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		relay := realtime.NewRedisRelay(rdb, realtime.DefaultRelayTopic)
		if err := relay.Run(relayCtx, hub); err != nil {
			return err
		}
		hub.SetRelay(relay)
	}

	engine := presence.New(hub, st.binders, st.captains)
	mapsClient := maps.NewClient(maps.Config{
		NominatimURL: cfg.NominatimURL,
		OSRMURL:      cfg.OSRMURL,
		Timeout:      cfg.GeocodeTimeout,
		UserAgent:    cfg.GeocodeUserAgent,
	})

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, routes.Handlers{
		Riders:   handlers.NewVerificationHandler(riders, "user", nil, cfg.JWTAccessExpiry),
		Captains: handlers.NewVerificationHandler(captains, "captain", handlers.BindCaptainProfile, cfg.JWTAccessExpiry),
		Maps:     handlers.NewMapsHandler(mapsClient, engine),
		Socket:   handlers.NewSocketHandler(hub, engine),
		Health:   handlers.NewHealthHandler(st.name, st.ping, hub.Count),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", st.name)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	hub.Close()
	stopRelay()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if cleanup != nil {
		<-cleanup.Stop().Done()
	}
	if pgHandler != nil {
		pgHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if !cfg.UseMemoryStore {
		if err := database.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// newNotifier falls back to logging codes for any channel without
// credentials.
func newNotifier(cfg *config.Config) (notify.Dispatcher, error) {
	var email notify.EmailSender = notify.NewLogSender("email")
	if cfg.SMTPConfigured() {
		smtp, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return nil, err
		}
		email = smtp
	} else {
		slog.Warn("SMTP not configured, email codes will be logged")
	}

	var sms notify.SMSSender = notify.NewLogSender("sms")
	if cfg.TwilioConfigured() {
		sms = notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	} else {
		slog.Warn("Twilio not configured, sms codes will be logged")
	}

	return notify.NewComposite(email, sms, cfg.NotifyTimeout), nil
}
