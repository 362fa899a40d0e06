package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-monitor/internal/service"
	"github.com/spec-kit/sla-monitor/internal/worker"
	apperrors "github.com/spec-kit/sla-monitor/pkg/util"
)

// SLAHandler exposes the operational SLA endpoints: metrics, on-demand
// checks, resets and manual sweep triggers.
type SLAHandler struct {
	monitor   *service.MonitorService
	scheduler *worker.Scheduler
}

// NewSLAHandler returns a new handler instance.
func NewSLAHandler(monitor *service.MonitorService, scheduler *worker.Scheduler) *SLAHandler {
	return &SLAHandler{monitor: monitor, scheduler: scheduler}
}

// Metrics returns the accumulated monitoring counters.
func (h *SLAHandler) Metrics(c *fiber.Ctx) error {
	run, snapshot, err := h.monitor.Metrics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"totals":  run,
		"process": snapshot,
	})
}

// CheckTicket evaluates one ticket's clocks immediately.
func (h *SLAHandler) CheckTicket(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.monitor.CheckTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// ResetTicket recomputes the ticket's deadlines from now.
func (h *SLAHandler) ResetTicket(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	if err := h.monitor.ResetTicketSLA(c.UserContext(), ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "reset"})
}

// Run triggers a full sweep outside the schedule.
func (h *SLAHandler) Run(c *fiber.Ctx) error {
	result, err := h.scheduler.RunNow(c.UserContext())
	if err != nil {
		if errors.Is(err, worker.ErrSweepInProgress) {
			return apperrors.NewConflict("a monitoring pass is already running", nil)
		}
		return err
	}
	return c.JSON(result)
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}
