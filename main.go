package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/yourusername/sleuth/handlers"
	"github.com/yourusername/sleuth/services"
)

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func main() {
	config, err := services.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	storage, err := services.NewStorage(config.Storage, config.Staging.Dir)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	provider := services.NewDetectionProvider(config.Provider)
	detectHandler := handlers.NewDetectHandler(storage, provider, *config)

	app := fiber.New(fiber.Config{
		BodyLimit:    config.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{AllowOrigins: config.Server.CORSOrigins}))
	app.Use(services.SecurityHeaders(nil))

	// Local staging needs the server itself to make staged files
	// fetchable by the provider.
	if local, ok := storage.(*services.LocalStorage); ok {
		app.Static("/uploads", local.BaseDir())
	}

	api := app.Group("/api")
	api.Post("/detect", detectHandler.Detect)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	log.Printf("Server starting on port %d", config.Server.Port)
	log.Fatal(app.Listen(fmt.Sprintf(":%d", config.Server.Port)))
}
