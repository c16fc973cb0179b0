package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_PROVINCE", "")
	t.Setenv("GEOCODER_RPS", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg := LoadConfig()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "Gauteng", cfg.DefaultProvince)
	assert.Equal(t, "South Africa", cfg.DefaultCountry)
	assert.Equal(t, "za", cfg.ExpectedCountryCode)
	assert.Equal(t, 1.0, cfg.GeocoderRPS)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, int64(5242880), cfg.MaxUploadSize)
	assert.Same(t, AppConfig, cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_PORT", "")
	t.Setenv("SESSION_IDLE_TTL", "15m")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")
	t.Setenv("STORAGE_TTL", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, int64(1024), cfg.MaxUploadSize)
	assert.Equal(t, 30*24*time.Hour, cfg.StorageTTL)
}

func TestConfig_DSN(t *testing.T) {
	t.Run("database url wins", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://u:p@db:5432/x", DBHost: "ignored"}
		assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
	})

	t.Run("built from parts", func(t *testing.T) {
		cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "1", DBName: "n", DBSSLMode: "disable"}
		assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", cfg.DSN())
	})
}

func TestConfig_FeatureSwitches(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.CloudinaryEnabled())
	assert.False(t, cfg.SMTPEnabled())

	cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret = "c", "k", "s"
	cfg.SMTPHost, cfg.SMTPUser, cfg.SMTPPass, cfg.OrderNotifyTo = "h", "u", "p", "admin@example.com"
	assert.True(t, cfg.CloudinaryEnabled())
	assert.True(t, cfg.SMTPEnabled())
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{AppEnv: "development", SessionSecret: DefaultSessionSecret}
	assert.NoError(t, cfg.Validate())

	cfg.AppEnv = "production"
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSessionSecret)

	cfg.SessionSecret = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSessionSecret)

	cfg.SessionSecret = "k7Qe9vX2pL"
	assert.NoError(t, cfg.Validate())
}
