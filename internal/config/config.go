package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// UseMemoryStore keeps actors in process memory (development and tests).
	UseMemoryStore bool

	// JWT (shared by riders and captains)
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Verification
	CountryCode string
	OTPCooldown time.Duration

	// Notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	NotifyTimeout time.Duration

	// Geocoding
	NominatimURL     string
	OSRMURL          string
	GeocodeTimeout   time.Duration
	GeocodeUserAgent string

	// Realtime
	RedisAddr             string
	RedisPassword         string
	SocketEventsPerSecond float64

	// Logging
	LogRetention time.Duration
	Debug        bool

	// Server
	// RequestTimeout bounds every /api request, directory calls included.
	RequestTimeout time.Duration
	Port           string
	CORSOrigins    string
	SentryDSN      string
	AppEnv         string
}

func Load() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "raftaar"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		UseMemoryStore: getEnv("USE_MEMORY_STORE", "false") == "true",

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		CountryCode: getEnv("COUNTRY_CODE", "+91"),
		OTPCooldown: parseDuration(getEnv("OTP_COOLDOWN", "120s"), 120*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     parseInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", getEnv("SMTP_USER", "")),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		NotifyTimeout: parseDuration(getEnv("NOTIFY_TIMEOUT", "10s"), 10*time.Second),

		NominatimURL:     getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		OSRMURL:          getEnv("OSRM_URL", "http://router.project-osrm.org"),
		GeocodeTimeout:   parseDuration(getEnv("GEOCODE_TIMEOUT", "15s"), 15*time.Second),
		GeocodeUserAgent: getEnv("GEOCODE_USER_AGENT", "raftaar-backend/1.0"),

		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		SocketEventsPerSecond: parseFloat(getEnv("SOCKET_EVENTS_PER_SECOND", "5"), 5),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),
		Debug:        getEnv("LOG_LEVEL", "info") == "debug",

		RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "30s"), 30*time.Second),
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		AppEnv:         getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
