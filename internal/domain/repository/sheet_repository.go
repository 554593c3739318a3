package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// SheetFilter criterios de consulta para listados de hojas.
// Destination se compara contra el valor normalizado (sin tildes, minúsculas).
type SheetFilter struct {
	Status      string
	Destination string
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}

// ChangeEvent notificación de cambio sobre un documento de hoja.
type ChangeEvent struct {
	SheetID string
	Op      string // created | replaced | deleted
}

// SheetRepository puerto del almacén de documentos de hojas. El agregado se
// persiste completo (semántica de reemplazo de documento); Replace exige la
// revisión leída y devuelve domain.ErrStaleRevision si otro escritor ganó.
type SheetRepository interface {
	// Create persiste una hoja nueva (revision inicial 1).
	Create(ctx context.Context, s *entity.Sheet) error
	// Replace sobrescribe el documento completo si la revisión coincide con
	// expectedRevision; incrementa s.Revision en éxito.
	Replace(ctx context.Context, s *entity.Sheet, expectedRevision int64) error
	// Delete elimina la hoja (borrado duro, explícito).
	Delete(ctx context.Context, id string) error
	// FindByID devuelve la hoja o (nil, nil) si no existe.
	FindByID(ctx context.Context, id string) (*entity.Sheet, error)
	// Query lista hojas que cumplen el filtro, más recientes primero.
	Query(ctx context.Context, f SheetFilter) ([]*entity.Sheet, error)
	// Changes emite eventos de cambio hasta que ctx se cancela. El canal se
	// cierra al terminar; los consumidores re-consultan tras cada evento.
	Changes(ctx context.Context) (<-chan ChangeEvent, error)
}
