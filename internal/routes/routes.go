package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/useyours/yours-backend/internal/config"
	"github.com/useyours/yours-backend/internal/handlers"
	"github.com/useyours/yours-backend/internal/middleware"
	"github.com/useyours/yours-backend/internal/services"
	"github.com/useyours/yours-backend/internal/store"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	sessions *services.SessionService,
	resonances *store.ResonanceStore,
	healthHandler *handlers.HealthHandler,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	accountHandler *handlers.AccountHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Session exchange is the only unauthenticated write; rate limit it
	// harder than the rest of the API: 10 req/min per IP
	session := api.Group("/session")
	session.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	session.Post("/exchange", sessionHandler.Exchange)

	// Sign-out only needs a verified cookie, not a loaded record.
	api.Delete("/session", middleware.SessionProtected(cfg), sessionHandler.Destroy)

	// Everything else needs a verified cookie plus a loaded record.
	protected := api.Group("",
		middleware.SessionProtected(cfg),
		middleware.ResonanceLoader(sessions, resonances),
	)

	protected.Get("/chat", chatHandler.Show)
	protected.Post("/chat/stream", chatHandler.Stream)
	protected.Post("/chat/integrate", chatHandler.Integrate)
	protected.Put("/textarea", chatHandler.Textarea)
	protected.Get("/export", chatHandler.Export)

	protected.Post("/account/reset", chatHandler.Reset)
	protected.Get("/account/subscription", accountHandler.Subscription)
	protected.Post("/subscribe", accountHandler.Subscribe)
	protected.Delete("/account/subscription", accountHandler.CancelSubscription)
}
