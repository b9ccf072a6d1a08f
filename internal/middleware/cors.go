package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/useyours/yours-backend/internal/config"
	"github.com/useyours/yours-backend/internal/continuity"
)

// CORS allows the web client to send the session cookie and the continuity
// assertion header cross-origin. AllowCredentials requires an explicit
// origin list, never "*".
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, " + continuity.AssertHeader,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders:    continuity.StateHeader,
		AllowCredentials: true,
	})
}
