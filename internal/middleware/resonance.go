package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/useyours/yours-backend/internal/continuity"
	"github.com/useyours/yours-backend/internal/dto"
	"github.com/useyours/yours-backend/internal/models"
	"github.com/useyours/yours-backend/internal/services"
	"github.com/useyours/yours-backend/internal/store"
)

const resonanceKey = "resonance"

// ResonanceLoader resolves the session's credential, loads the record with
// the credential attached, and hands it to the handler through locals:
// explicit dependency injection rather than ambient session state. On the
// way out it stamps the response with the record's current universe time.
func ResonanceLoader(sessions *services.SessionService, resonances *store.ResonanceStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return unauthorized(c)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c)
		}
		credential, ok := sessions.CredentialFromClaims(claims)
		if !ok {
			return unauthorized(c)
		}

		r, err := resonances.Find(credential)
		if err != nil {
			slog.Error("resonance load failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Internal server error",
			})
		}
		if r == nil {
			// Valid cookie, no record: signed out elsewhere. Sign in again.
			return unauthorized(c)
		}

		c.Locals(resonanceKey, r)
		err = c.Next()

		// Every authenticated response advertises the current universe
		// time so clients can assert it on their next write.
		if ut, uerr := r.UniverseTime(); uerr == nil {
			c.Set(continuity.StateHeader, ut)
		}
		return err
	}
}

// GetResonance extracts the loaded record from Fiber context locals.
func GetResonance(c *fiber.Ctx) *models.Resonance {
	if r, ok := c.Locals(resonanceKey).(*models.Resonance); ok {
		return r
	}
	return nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Please sign in",
	})
}
