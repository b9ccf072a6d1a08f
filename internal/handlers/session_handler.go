package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/useyours/yours-backend/internal/dto"
	"github.com/useyours/yours-backend/internal/services"
	"github.com/useyours/yours-backend/internal/store"
)

type SessionHandler struct {
	sessions   *services.SessionService
	resonances *store.ResonanceStore
}

func NewSessionHandler(sessions *services.SessionService, resonances *store.ResonanceStore) *SessionHandler {
	return &SessionHandler{sessions: sessions, resonances: resonances}
}

// Exchange turns a native-app bootstrap token into a session cookie. The
// record is created on first exchange; subsequent exchanges from the same
// identity land on the same record.
func (h *SessionHandler) Exchange(c *fiber.Ctx) error {
	var req dto.ExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	credential, ok := h.sessions.ExchangeAuthToken(req.Token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid auth token",
		})
	}

	r, err := h.resonances.FindOrCreate(credential)
	if err != nil {
		slog.Error("session exchange failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	sessionToken, err := h.sessions.MintSessionToken(credential)
	if err != nil {
		slog.Error("session mint failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookie,
		Value:    sessionToken,
		Expires:  time.Now().Add(h.sessions.TTL()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	ut, err := r.UniverseTime()
	if err != nil {
		slog.Error("universe time after exchange failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(dto.SessionResponse{UniverseTime: ut})
}

// Destroy signs the browser out by expiring the cookie. The record stays.
func (h *SessionHandler) Destroy(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "Signed out"})
}
