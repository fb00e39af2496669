package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rahmatrdn/go-query-profiler/internal/usecase"
)

type DiagnosticsHandler struct {
	profilerUsecase usecase.ProfilerUsecase
}

func NewDiagnosticsHandler(profilerUsecase usecase.ProfilerUsecase) *DiagnosticsHandler {
	return &DiagnosticsHandler{profilerUsecase: profilerUsecase}
}

func (h *DiagnosticsHandler) Register(app *fiber.App) {
	group := app.Group("/diagnostics")
	group.Get("/performance", h.GetPerformance)
	group.Get("/requests", h.GetRecentRequests)
}

// GetPerformance returns the live performance overview: status, aggregate
// counts over active profiles and the current recommendations.
func (h *DiagnosticsHandler) GetPerformance(c *fiber.Ctx) error {
	overview, err := h.profilerUsecase.Overview(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}
	return c.JSON(overview)
}

// GetRecentRequests lists recently finished (archived) request profiles.
func (h *DiagnosticsHandler) GetRecentRequests(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid limit")
	}

	archives, err := h.profilerUsecase.RecentProfiles(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return c.JSON(fiber.Map{
		"data": archives,
	})
}
