package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsYEntorno(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("PRECIO_CACHE_TTL", "30s")
	t.Setenv("WORKER_POOL_SIZE", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 30*time.Second, cfg.PrecioCacheTTL)
	assert.Equal(t, 600, cfg.RateLimitPerMin)
	assert.Equal(t, 1, cfg.WorkerPoolSize, "pool size is clamped to at least one")
	assert.False(t, cfg.NotificacionesActivas())
}

func TestLoad_SinSecreto(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_ProduccionExigeSecretoLargo(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "32 characters")
}

func TestNotificacionesActivas(t *testing.T) {
	cfg := &Config{SMTPHost: "smtp.example.com"}
	assert.False(t, cfg.NotificacionesActivas())
	cfg.NotifyEmail = "dueno@example.com"
	assert.True(t, cfg.NotificacionesActivas())
}

func TestOrigenesCORS(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://caja.example.com, ,http://localhost:5173 "}
	assert.Equal(t, []string{"https://caja.example.com", "http://localhost:5173"}, cfg.OrigenesCORS())

	t.Setenv("JWT_SECRET", "dev-secret")
	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, loaded.OrigenesCORS())
}

func TestLoad_ProduccionExigeOrigenesCORS(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")
	_, err := Load()
	assert.ErrorContains(t, err, "CORS_ALLOWED_ORIGINS")
}
