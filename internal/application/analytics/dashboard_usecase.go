package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Despachos-api/internal/application/dto"
	"github.com/jhoicas/Despachos-api/internal/domain/repository"
)

var hundred = decimal.NewFromInt(100)

// DashboardUseCase resumen operativo: conteos por estado y métricas de
// llenado por destino. Solo lectura sobre los documentos de hoja.
type DashboardUseCase struct {
	repo repository.AnalyticsRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(repo repository.AnalyticsRepository) *DashboardUseCase {
	return &DashboardUseCase{repo: repo}
}

// Summary arma el resumen para [from, to]. Si el rango viene vacío se usan
// los últimos 30 días.
func (uc *DashboardUseCase) Summary(ctx context.Context, from, to time.Time) (*dto.DashboardSummaryResponse, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	fills, err := uc.repo.FillByDestination(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := &dto.DashboardSummaryResponse{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}
	for _, c := range counts {
		out.StatusCounts = append(out.StatusCounts, dto.StatusCount{Status: c.Status, Count: c.Count})
	}
	for _, f := range fills {
		out.Destinations = append(out.Destinations, dto.DestinationFill{
			Destination:   f.Destination,
			SheetCount:    f.SheetCount,
			PlannedCases:  f.PlannedCases,
			LoadedCases:   f.LoadedCases,
			ShortageCases: f.ShortageCases,
			OverageCases:  f.OverageCases,
			FillRatePct:   fillRatePct(f.PlannedCases, f.LoadedCases),
		})
	}
	return out, nil
}

// fillRatePct cargado/planificado como porcentaje con 2 decimales.
// Plan cero produce 0 (no hay nada contra qué medir).
func fillRatePct(planned, loaded decimal.Decimal) decimal.Decimal {
	if planned.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return loaded.Div(planned).Mul(hundred).Round(2)
}
