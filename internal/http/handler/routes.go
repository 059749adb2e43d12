package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"explainx/docs"
	"explainx/internal/http/middleware"
	"explainx/internal/service"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB          *sql.DB
	Gatherer    prometheus.Gatherer
	Scheduler   JobScheduler
	Runs        RunLister
	Reports     service.ReportService
	AdminAPIKey string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Probes, metrics and docs are public; everything else requires the admin key.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	auth := middleware.APIKeyAuth(d.AdminAPIKey)

	jobs := app.Group("/jobs", auth)
	jobs.Get("/", ListJobs(d.Scheduler))
	jobs.Get("/:name", GetJob(d.Scheduler))
	jobs.Post("/:name/run", RunJob(d.Scheduler))
	jobs.Post("/:name/start", StartJob(d.Scheduler))
	jobs.Post("/:name/stop", StopJob(d.Scheduler))
	jobs.Get("/:name/runs", ListJobRuns(d.Scheduler, d.Runs))

	reports := app.Group("/reports", auth)
	reports.Get("/", ListReports(d.Reports))
	reports.Get("/snapshots/:date", GetSnapshot(d.Reports))
}
