package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
	"github.com/jhoicas/Despachos-api/internal/domain/repository"
	"github.com/jhoicas/Despachos-api/pkg/textutil"
)

var _ repository.SheetRepository = (*SheetRepo)(nil)

// Canal de pg_notify para cambios de hojas.
const sheetsChannel = "sheets_changed"

// SheetRepo almacén de documentos de hojas sobre PostgreSQL. El agregado se
// guarda completo como JSONB (semántica de reemplazo de documento); status,
// destination_norm y revision se elevan a columnas para consultar y para el
// compare-and-swap del guardado.
type SheetRepo struct {
	pool *pgxpool.Pool
}

// NewSheetRepository construye el adaptador de persistencia de hojas.
func NewSheetRepository(pool *pgxpool.Pool) *SheetRepo {
	return &SheetRepo{pool: pool}
}

// Create persiste una hoja nueva con revision 1 y notifica el cambio.
func (r *SheetRepo) Create(ctx context.Context, s *entity.Sheet) error {
	s.Revision = 1
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sheet: %w", err)
	}
	query := `
		INSERT INTO sheets (id, status, destination_norm, revision, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, query,
		s.ID, s.Status, textutil.Normalize(s.Destination), s.Revision, doc, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sheet: %w", err)
	}
	r.notify(ctx, s.ID, "created")
	return nil
}

// Replace sobrescribe el documento completo si la revisión coincide.
// Devuelve ErrStaleRevision si otro escritor ganó y ErrNotFound si la hoja
// ya no existe. En éxito incrementa s.Revision.
func (r *SheetRepo) Replace(ctx context.Context, s *entity.Sheet, expectedRevision int64) error {
	next := expectedRevision + 1
	out := *s
	out.Revision = next
	doc, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal sheet: %w", err)
	}
	query := `
		UPDATE sheets
		SET status = $2, destination_norm = $3, revision = $4, doc = $5, updated_at = $6
		WHERE id = $1 AND revision = $7`
	cmd, err := r.pool.Exec(ctx, query,
		s.ID, s.Status, textutil.Normalize(s.Destination), next, doc, s.UpdatedAt, expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("replace sheet: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sheets WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return fmt.Errorf("verificar existencia: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrStaleRevision
	}
	s.Revision = next
	r.notify(ctx, s.ID, "replaced")
	return nil
}

// Delete elimina la hoja (borrado duro) y notifica.
func (r *SheetRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sheets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sheet: %w", err)
	}
	r.notify(ctx, id, "deleted")
	return nil
}

// FindByID devuelve la hoja o (nil, nil) si no existe.
func (r *SheetRepo) FindByID(ctx context.Context, id string) (*entity.Sheet, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM sheets WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sheet: %w", err)
	}
	var s entity.Sheet
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("unmarshal sheet: %w", err)
	}
	return &s, nil
}

// Query lista hojas según el filtro, más recientes primero.
func (r *SheetRepo) Query(ctx context.Context, f repository.SheetFilter) ([]*entity.Sheet, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Destination != "" {
		where = append(where, "destination_norm = "+arg(f.Destination))
	}
	if f.DateFrom != nil {
		where = append(where, "created_at >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, "created_at <= "+arg(*f.DateTo))
	}
	query := `SELECT doc FROM sheets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sheets: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sheet
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		var s entity.Sheet
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, fmt.Errorf("unmarshal sheet: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// Changes emite eventos de cambio vía LISTEN/NOTIFY hasta que ctx se cancela.
// Dedica una conexión del pool al LISTEN; el canal se cierra al terminar.
func (r *SheetRepo) Changes(ctx context.Context) (<-chan repository.ChangeEvent, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+sheetsChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", sheetsChannel, err)
	}

	events := make(chan repository.ChangeEvent)
	go func() {
		defer close(events)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return // ctx cancelado o conexión perdida
			}
			id, op, ok := strings.Cut(n.Payload, ":")
			if !ok {
				continue
			}
			select {
			case events <- repository.ChangeEvent{SheetID: id, Op: op}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// notify publica el evento de cambio. Best-effort: el fallo no invalida la
// escritura que lo originó.
func (r *SheetRepo) notify(ctx context.Context, id, op string) {
	_, _ = r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, sheetsChannel, id+":"+op)
}
