package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/Despachos-api/internal/application/analytics"
	"github.com/jhoicas/Despachos-api/internal/application/dto"
)

// DashboardHandler maneja los endpoints del módulo de Dashboard.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary godoc
// @Summary      Resumen operativo de despachos
// @Description  Conteo de hojas por estado y métricas de llenado por destino en el rango [from, to]. Sin rango se usan los últimos 30 días.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "Fecha desde (YYYY-MM-DD)"
// @Param        to    query  string  false  "Fecha hasta (YYYY-MM-DD)"
// @Success      200   {object}  dto.DashboardSummaryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	var from, to time.Time
	if q := c.Query("from"); q != "" {
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido; use YYYY-MM-DD"})
		}
		from = t
	}
	if q := c.Query("to"); q != "" {
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido; use YYYY-MM-DD"})
		}
		to = t
	}

	summary, err := h.uc.Summary(c.Context(), from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "INTERNAL", Message: err.Error(),
		})
	}
	return c.JSON(summary)
}
