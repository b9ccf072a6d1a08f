package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/useyours/yours-backend/internal/config"
	"github.com/useyours/yours-backend/internal/dto"
	"github.com/useyours/yours-backend/internal/middleware"
	"github.com/useyours/yours-backend/internal/services"
)

type AccountHandler struct {
	billing *services.BillingService
	cfg     *config.Config
}

func NewAccountHandler(billing *services.BillingService, cfg *config.Config) *AccountHandler {
	return &AccountHandler{billing: billing, cfg: cfg}
}

func (h *AccountHandler) Subscription(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	details, err := h.billing.Details(r)
	if err != nil {
		slog.Error("subscription lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	if details == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "No active subscription found",
		})
	}
	return c.JSON(details)
}

func (h *AccountHandler) Subscribe(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	url, err := h.billing.CreateCheckoutSession(r, req.Tier,
		h.cfg.AppBaseURL+"/subscribe/success",
		h.cfg.AppBaseURL+"/subscribe/cancel")
	if err != nil {
		if errors.Is(err, services.ErrUnknownTier) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown subscription tier",
			})
		}
		slog.Error("checkout session failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.SubscribeResponse{URL: url})
}

func (h *AccountHandler) CancelSubscription(c *fiber.Ctx) error {
	r := middleware.GetResonance(c)

	if err := h.billing.Cancel(r); err != nil {
		slog.Error("subscription cancel failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"message": "Subscription will end at the close of the current period"})
}
