package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	v1 "github.com/scmlabs/modsentry/internal/api/v1"
	"github.com/scmlabs/modsentry/pkg/logger"
	storage "github.com/scmlabs/modsentry/pkg/redis"
)

// NewRoutes wires the middleware stack and mounts the moderation API
// under /api/v1 and /api/v2. v2 re-exports the v1 handlers for parity.
func NewRoutes(ctx context.Context, app *fiber.App, api *v1.API, log *logger.Logger, rclient *storage.RedisClient) {
	app.Use(
		logger.SetupLogger(log),
		recover.New(),
		cors.New(
			cors.Config{
				AllowOrigins: "*",
				AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			},
		),
		compress.New(
			compress.Config{
				Level: compress.LevelBestCompression,
			},
		),
		limiter.New(
			limiter.Config{
				Expiration: 1 * time.Minute,
				Max:        60,
				KeyGenerator: func(c *fiber.Ctx) string {
					return c.IP()
				},
			},
		),
	)
	app.Use(log.Middleware())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "ModSentry - Content Moderation Service", "status": "running"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "database": "connected"})
	})

	for _, prefix := range []string{"/api/v1", "/api/v2"} {
		group := app.Group(prefix)

		moderate := group.Group("/moderate")
		moderate.Post("/text", api.ModerateText)
		moderate.Post("/image", api.ModerateImage)
		moderate.Get("/results/:id", api.GetResult)

		stats := group.Group("/analytics")
		stats.Get("/summary", api.UserSummary)
		stats.Get("/system", api.SystemSummary)
	}

	go func() {
		<-ctx.Done()
		if rclient != nil {
			rclient.Close(log)
		}
		log.Close()
	}()
}
