package dto

import "github.com/shopspring/decimal"

// StatusCount conteo de hojas en un estado.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DestinationFill métricas de conciliación por destino.
type DestinationFill struct {
	Destination   string          `json:"destination"`
	SheetCount    int             `json:"sheetCount"`
	PlannedCases  decimal.Decimal `json:"plannedCases"`
	LoadedCases   decimal.Decimal `json:"loadedCases"`
	ShortageCases decimal.Decimal `json:"shortageCases"`
	OverageCases  decimal.Decimal `json:"overageCases"`
	FillRatePct   decimal.Decimal `json:"fillRatePct"` // porcentaje 0-100, 2 decimales
}

// DashboardSummaryResponse resumen operativo para el tablero.
type DashboardSummaryResponse struct {
	StatusCounts []StatusCount     `json:"statusCounts"`
	Destinations []DestinationFill `json:"destinations"`
	From         string            `json:"from"`
	To           string            `json:"to"`
}
