package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COUNTRY_CODE", "")
	t.Setenv("OTP_COOLDOWN", "")
	t.Setenv("GEOCODE_TIMEOUT", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, "+91", cfg.CountryCode)
	assert.Equal(t, 120*time.Second, cfg.OTPCooldown)
	assert.Equal(t, 15*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OTP_COOLDOWN", "30s")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.OTPCooldown)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
