package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/useyours/yours-backend/internal/config"
	"github.com/useyours/yours-backend/internal/dto"
	"github.com/useyours/yours-backend/internal/services"
)

// SessionProtected verifies the session JWT cookie. It only proves the
// cookie is ours and unexpired; ResonanceLoader turns it into a loaded
// record.
func SessionProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{Key: []byte(cfg.SessionSecret)},
		TokenLookup: "cookie:" + services.SessionCookie,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Please sign in",
			})
		},
	})
}
