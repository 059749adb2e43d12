package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"explainx/internal/service"
)

// ListReports godoc
// @Summary  List requested reports
// @Tags     reports
// @Produce  json
// @Security BearerAuth
// @Param    status query string false "PENDING, COMPLETED or FAILED"
// @Param    limit  query int    false "Page size" default(10)
// @Param    offset query int    false "Offset"    default(0)
// @Success  200 {object} service.ReportListResult
// @Failure  400 {object} errorPayload
// @Router   /reports [get]
func ListReports(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pagination(c)
		if !ok {
			return nil
		}
		res, err := svc.List(c.UserContext(), c.Query("status"), limit, offset)
		if err != nil {
			if errors.Is(err, service.ErrInvalidStatus) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "invalid status")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetSnapshot godoc
// @Summary  Pre-signed URL of a daily run summary
// @Tags     reports
// @Produce  json
// @Security BearerAuth
// @Param    date path string true "Report day (YYYY-MM-DD)"
// @Success  200 {object} map[string]string
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /reports/snapshots/{date} [get]
func GetSnapshot(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Params("date")
		url, err := svc.SnapshotURL(c.UserContext(), date)
		switch {
		case err == nil:
			return c.JSON(fiber.Map{"date": date, "url": url})
		case errors.Is(err, service.ErrInvalidDate):
			return writeError(c, fiber.StatusBadRequest, "INVALID_DATE", "invalid date, expected YYYY-MM-DD")
		case errors.Is(err, service.ErrSnapshotNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "snapshot not found")
		case errors.Is(err, service.ErrSnapshotsDisabled):
			return writeError(c, fiber.StatusServiceUnavailable, "SNAPSHOTS_DISABLED", "snapshot storage is not configured")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
