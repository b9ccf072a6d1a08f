package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/useyours/yours-backend/internal/config"
)

func TestCORSBootsOnDefaultConfig(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("APP_BASE_URL", "")

	// Fiber's cors middleware panics on AllowCredentials with a wildcard
	// origin; the default config must never put us there.
	assert.NotPanics(t, func() {
		CORS(config.Load())
	})
}
