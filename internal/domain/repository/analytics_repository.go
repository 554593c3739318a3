package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusCountResult conteo de hojas por estado.
type StatusCountResult struct {
	Status string
	Count  int
}

// DestinationFillResult métricas de conciliación por destino en un rango de
// fechas: cuánto se planificó, cuánto se cargó y el ratio de llenado.
type DestinationFillResult struct {
	Destination   string
	SheetCount    int
	PlannedCases  decimal.Decimal
	LoadedCases   decimal.Decimal
	ShortageCases decimal.Decimal // Σ balances positivos (faltantes a devolver)
	OverageCases  decimal.Decimal // Σ |balances negativos| (sobrecargas)
	FillRate      decimal.Decimal // LoadedCases / PlannedCases (0 si plan = 0)
}

// AnalyticsRepository consultas de solo lectura sobre los documentos de hoja.
// Las implementaciones no modifican datos.
type AnalyticsRepository interface {
	// CountByStatus devuelve el número de hojas en cada estado.
	CountByStatus(ctx context.Context) ([]StatusCountResult, error)
	// FillByDestination devuelve las métricas de llenado por destino para
	// hojas creadas en [from, to].
	FillByDestination(ctx context.Context, from, to time.Time) ([]DestinationFillResult, error)
}
