package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles the use cases served over HTTP.
type Services struct {
	Documents  service.DocumentService
	Queries    service.QueryService
	Categories service.CategoryService
	Histories  service.HistoryService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Document routes expect middleware.Actor to run first.
func RegisterRoutes(app *fiber.App, db Pinger, svc Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Static segments before /:id.
	app.Get("/documents", ListDocuments(svc.Queries))
	app.Get("/documents/recent", RecentDocuments(svc.Queries))
	app.Get("/documents/mine", MyDocuments(svc.Queries))
	app.Post("/documents", CreateDocument(svc.Documents))
	app.Get("/documents/:id", GetDocument(svc.Documents))
	app.Put("/documents/:id", UpdateDocument(svc.Documents))
	app.Delete("/documents/:id", DeleteDocument(svc.Documents))
	app.Get("/documents/:id/download", DownloadDocument(svc.Documents))
	app.Get("/documents/:id/download-url", DocumentDownloadURL(svc.Documents))
	app.Get("/documents/:id/thumbnail", DocumentThumbnail(svc.Documents))
	app.Get("/documents/:id/history", DocumentHistory(svc.Documents, svc.Histories))

	app.Get("/history", QueryHistory(svc.Histories))

	app.Get("/categories", ListCategories(svc.Queries))
	app.Post("/categories", CreateCategory(svc.Categories))
	app.Get("/categories/:id", GetCategory(svc.Categories))
	app.Put("/categories/:id", UpdateCategory(svc.Categories))
	app.Delete("/categories/:id", DeleteCategory(svc.Categories))
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Checks database connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process is up.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
