package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Widget session
		api.Get("/state", handler.GetState)
		api.Post("/input", handler.Input)
		api.Post("/submit", handler.Submit)
		api.Post("/suggestions/select", handler.SelectSuggestion)
		api.Post("/recent/select", handler.SelectRecent)
		api.Post("/location", handler.Location)
		api.Post("/location/error", handler.LocationError)
		api.Post("/unit/toggle", handler.ToggleUnit)

		// Stateless lookup
		api.Get("/weather", handler.GetWeather)
	}
}
