package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Despachos-api/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura sobre los documentos de hoja.
// Los agregados NUMERIC llegan como shopspring/decimal vía el codec del pool.
type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// CountByStatus número de hojas en cada estado.
func (r *AnalyticsRepo) CountByStatus(ctx context.Context) ([]repository.StatusCountResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM sheets GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	var list []repository.StatusCountResult
	for rows.Next() {
		var c repository.StatusCountResult
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// FillByDestination métricas de conciliación por destino para hojas creadas
// en [from, to]. El plan y lo cargado se suman desde los arreglos JSONB del
// documento; faltante = Σ balances positivos, sobrecarga = Σ |negativos|.
func (r *AnalyticsRepo) FillByDestination(ctx context.Context, from, to time.Time) ([]repository.DestinationFillResult, error) {
	query := `
		SELECT
			COALESCE(NULLIF(s.doc->>'destination', ''), '(sin destino)') AS destination,
			COUNT(*) AS sheet_count,
			COALESCE(SUM(p.planned), 0)::numeric  AS planned,
			COALESCE(SUM(l.loaded), 0)::numeric   AS loaded,
			COALESCE(SUM(l.shortage), 0)::numeric AS shortage,
			COALESCE(SUM(l.overage), 0)::numeric  AS overage
		FROM sheets s
		LEFT JOIN LATERAL (
			SELECT SUM((it->>'ttlCases')::numeric) AS planned
			FROM jsonb_array_elements(s.doc->'stagingItems') it
		) p ON TRUE
		LEFT JOIN LATERAL (
			SELECT
				SUM((it->>'total')::numeric)                  AS loaded,
				SUM(GREATEST((it->>'balance')::numeric, 0))   AS shortage,
				SUM(GREATEST(-(it->>'balance')::numeric, 0))  AS overage
			FROM jsonb_array_elements(s.doc->'loadingItems') it
		) l ON TRUE
		WHERE s.created_at >= $1 AND s.created_at <= $2
		GROUP BY 1
		ORDER BY 2 DESC, 1`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("fill by destination: %w", err)
	}
	defer rows.Close()
	var list []repository.DestinationFillResult
	for rows.Next() {
		var f repository.DestinationFillResult
		err := rows.Scan(
			&f.Destination, &f.SheetCount,
			&f.PlannedCases, &f.LoadedCases, &f.ShortageCases, &f.OverageCases,
		)
		if err != nil {
			return nil, fmt.Errorf("scan destination fill: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
