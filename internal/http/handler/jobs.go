package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"explainx/internal/cron"
	"explainx/internal/service"
)

// JobScheduler is the part of the cron scheduler the admin API drives.
type JobScheduler interface {
	Jobs() []cron.Snapshot
	Describe(name string) (cron.Snapshot, error)
	Trigger(name string) error
	Start(name string) error
	Stop(name string) error
}

// RunLister lists persisted runs of a job.
type RunLister interface {
	List(ctx context.Context, job string, limit, offset int) (*service.RunListResult, error)
}

type jobList struct {
	Items []cron.Snapshot `json:"data"`
	Total int             `json:"total"`
}

// ListJobs godoc
// @Summary  List registered cron jobs
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} jobList
// @Router   /jobs [get]
func ListJobs(s JobScheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobs := s.Jobs()
		return c.JSON(jobList{Items: jobs, Total: len(jobs)})
	}
}

// GetJob godoc
// @Summary  Describe one cron job
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Param    name path string true "Job name"
// @Success  200 {object} cron.Snapshot
// @Failure  404 {object} errorPayload
// @Router   /jobs/{name} [get]
func GetJob(s JobScheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := s.Describe(c.Params("name"))
		if err != nil {
			return writeSchedulerError(c, err)
		}
		return c.JSON(snap)
	}
}

// RunJob godoc
// @Summary  Trigger a run outside the schedule
// @Description The run goes through the same retry policy and overlap rule as scheduled ticks.
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Param    name path string true "Job name"
// @Success  202 {object} map[string]string
// @Failure  404 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /jobs/{name}/run [post]
func RunJob(s JobScheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		if err := s.Trigger(name); err != nil {
			return writeSchedulerError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job": name, "status": "triggered"})
	}
}

// StartJob godoc
// @Summary  Start the job's timer
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Param    name path string true "Job name"
// @Success  200 {object} cron.Snapshot
// @Failure  404 {object} errorPayload
// @Router   /jobs/{name}/start [post]
func StartJob(s JobScheduler) fiber.Handler {
	return toggle(s, s.Start)
}

// StopJob godoc
// @Summary  Stop the job's timer
// @Description A run in progress is not interrupted.
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Param    name path string true "Job name"
// @Success  200 {object} cron.Snapshot
// @Failure  404 {object} errorPayload
// @Router   /jobs/{name}/stop [post]
func StopJob(s JobScheduler) fiber.Handler {
	return toggle(s, s.Stop)
}

func toggle(s JobScheduler, action func(string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		if err := action(name); err != nil {
			return writeSchedulerError(c, err)
		}
		snap, err := s.Describe(name)
		if err != nil {
			return writeSchedulerError(c, err)
		}
		return c.JSON(snap)
	}
}

// ListJobRuns godoc
// @Summary  Run history of a job
// @Tags     jobs
// @Produce  json
// @Security BearerAuth
// @Param    name   path  string true  "Job name"
// @Param    limit  query int    false "Page size" default(10)
// @Param    offset query int    false "Offset"    default(0)
// @Success  200 {object} service.RunListResult
// @Failure  404 {object} errorPayload
// @Router   /jobs/{name}/runs [get]
func ListJobRuns(s JobScheduler, runs RunLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		if _, err := s.Describe(name); err != nil {
			return writeSchedulerError(c, err)
		}
		limit, offset, ok := pagination(c)
		if !ok {
			return nil
		}
		res, err := runs.List(c.UserContext(), name, limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// pagination parses limit and offset. On failure it has already written the response.
func pagination(c *fiber.Ctx) (limit, offset int, ok bool) {
	limit = c.QueryInt("limit", 10)
	offset = c.QueryInt("offset", 0)
	if raw := c.Query("limit"); raw != "" && !isDigits(raw) {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		return 0, 0, false
	}
	if raw := c.Query("offset"); raw != "" && !isDigits(raw) {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		return 0, 0, false
	}
	return limit, offset, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
