package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/useyours/yours-backend/internal/config"
	"github.com/useyours/yours-backend/internal/continuity"
	"github.com/useyours/yours-backend/internal/dto"
	"github.com/useyours/yours-backend/internal/lightward"
	"github.com/useyours/yours-backend/internal/middleware"
	"github.com/useyours/yours-backend/internal/models"
	"github.com/useyours/yours-backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
	cfg  *config.Config
}

func NewChatHandler(chat *services.ChatService, cfg *config.Config) *ChatHandler {
	return &ChatHandler{chat: chat, cfg: cfg}
}

// Show returns the decrypted view of the current day: narrative, day,
// universe time, and the scratch textarea.
func (h *ChatHandler) Show(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	narrative, err := r.Narrative()
	if err != nil {
		return internalError(c, "read narrative", err)
	}
	day, err := r.UniverseDay()
	if err != nil {
		return internalError(c, "read universe day", err)
	}
	ut, err := r.UniverseTime()
	if err != nil {
		return internalError(c, "read universe time", err)
	}
	textarea, err := r.Textarea()
	if err != nil {
		return internalError(c, "read textarea", err)
	}

	return c.JSON(dto.ChatStateResponse{
		Narrative:    narrative,
		UniverseDay:  day,
		UniverseTime: ut,
		Textarea:     textarea,
	})
}

// Stream appends one exchange to the narrative, relaying the reply as
// server-sent events. Gate order matters: entitlement first, then the
// continuity assertion, then the upstream call, so a rejected request never
// reaches the model.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	var req dto.StreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Message.Role == "" || len(req.Message.Content) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Message is required",
		})
	}
	req.Message.Role = models.RoleUser

	if err := h.chat.CheckEntitlement(r); err != nil {
		if errors.Is(err, services.ErrNotEntitled) {
			return h.subscriptionRequired(c)
		}
		return internalError(c, "check entitlement", err)
	}

	if handled, err := h.rejectIfDiverged(c, r); handled || err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	message := req.Message
	timeout := h.cfg.AITimeout
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The request context is gone once streaming starts; the relay
		// gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// The end frame goes out exactly once, even if the relay panics.
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("chat stream panic", "panic", rec)
			}
			writeSSEEvent(w, "end", nil)
		}()

		ut, err := h.chat.Stream(ctx, r, message, w)
		if err != nil {
			if errors.Is(err, lightward.ErrClientGone) {
				// Nothing was saved and nobody is listening.
				slog.Info("chat stream client disconnected")
				return
			}
			slog.Error("chat stream failed", "error", err)
			writeSSEEvent(w, "error", fiber.Map{
				"error": fiber.Map{"message": "An error occurred"},
			})
			return
		}

		writeSSEEvent(w, "universe_time", dto.UniverseTimeResponse{UniverseTime: ut})
	})

	return nil
}

// Integrate kicks off the day-boundary transition and returns immediately;
// the client polls universe time to see the new day land.
func (h *ChatHandler) Integrate(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	if err := h.chat.CheckEntitlement(r); err != nil {
		if errors.Is(err, services.ErrNotEntitled) {
			return h.subscriptionRequired(c)
		}
		return internalError(c, "check entitlement", err)
	}

	if handled, err := h.rejectIfDiverged(c, r); handled || err != nil {
		return err
	}

	if err := h.chat.Integrate(r); err != nil {
		if errors.Is(err, services.ErrEmptyNarrative) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
				Error: true, Message: "Nothing to integrate yet",
			})
		}
		return internalError(c, "start integration", err)
	}

	ut, err := r.UniverseTime()
	if err != nil {
		return internalError(c, "read universe time", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.IntegrateResponse{
		Status:       "integrating",
		UniverseTime: ut,
	})
}

// Textarea replaces the scratch buffer. Continuity-guarded like any other
// write; not entitlement-gated, so an expired account can still jot notes.
func (h *ChatHandler) Textarea(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	var req dto.TextareaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if handled, err := h.rejectIfDiverged(c, r); handled || err != nil {
		return err
	}

	ut, err := h.chat.SaveTextarea(r, req.Textarea)
	if err != nil {
		return internalError(c, "save textarea", err)
	}
	return c.JSON(dto.UniverseTimeResponse{UniverseTime: ut})
}

// Reset begins the universe again from day 1. Deliberately not
// continuity-guarded: a reset is an explicit decision, not a stale write.
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	ut, err := h.chat.Reset(r)
	if err != nil {
		return internalError(c, "reset", err)
	}
	return c.JSON(dto.UniverseTimeResponse{UniverseTime: ut})
}

// Export returns the current narrative as plain text.
func (h *ChatHandler) Export(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	rendered, err := h.chat.Export(r)
	if err != nil {
		return internalError(c, "export", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="yours-export.txt"`)
	return c.SendString(rendered)
}

// rejectIfDiverged compares the client's asserted universe time against the
// record's and writes the 409 when the client is behind. handled=true means
// the response has been written.
func (h *ChatHandler) rejectIfDiverged(c *fiber.Ctx, r *models.Resonance) (handled bool, err error) {
	serverTime, err := r.UniverseTime()
	if err != nil {
		return true, internalError(c, "read universe time", err)
	}

	d := continuity.Check(c.Get(continuity.AssertHeader), serverTime)
	if d == nil {
		return false, nil
	}
	return true, c.Status(fiber.StatusConflict).JSON(d)
}

func (h *ChatHandler) subscriptionRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(dto.SubscriptionRequiredResponse{
		Error:        true,
		Message:      "Day 2 and beyond need an active subscription",
		SubscribeURL: h.cfg.AppBaseURL + "/subscribe",
	})
}

func internalError(c *fiber.Ctx, action string, err error) error {
	slog.Error("request failed", "action", action, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

// writeSSEEvent emits one frame; nil data means a bare event with no data
// line, which is how the terminal end frame goes out.
func writeSSEEvent(w *bufio.Writer, event string, data any) {
	if data == nil {
		fmt.Fprintf(w, "event: %s\n\n", event)
	} else {
		payload, err := json.Marshal(data)
		if err != nil {
			slog.Error("sse marshal failed", "event", event, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	}
	if err := w.Flush(); err != nil {
		slog.Warn("sse flush failed: client gone", "event", event)
	}
}
