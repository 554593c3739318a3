package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Despachos-api/internal/application/dto"
	"github.com/jhoicas/Despachos-api/internal/application/editsession"
	"github.com/jhoicas/Despachos-api/internal/application/ports"
	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
	"github.com/jhoicas/Despachos-api/internal/domain/repository"
	"github.com/jhoicas/Despachos-api/internal/domain/sheet"
	"github.com/jhoicas/Despachos-api/pkg/textutil"
)

// SheetUseCase orquesta el ciclo de vida de las hojas de despacho: creación,
// ediciones con guardado debounced, transiciones sincrónicas y borrado.
type SheetUseCase struct {
	repo     repository.SheetRepository
	sessions *editsession.Manager
	engine   *sheet.Engine
	notifier ports.Notifier
	now      func() time.Time
	newID    func() string
}

// NewSheetUseCase construye el caso de uso. El reloj es inyectable (testing).
func NewSheetUseCase(
	repo repository.SheetRepository,
	sessions *editsession.Manager,
	engine *sheet.Engine,
	notifier ports.Notifier,
	opts ...SheetOption,
) *SheetUseCase {
	uc := &SheetUseCase{
		repo:     repo,
		sessions: sessions,
		engine:   engine,
		notifier: notifier,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// SheetOption configura el caso de uso.
type SheetOption func(*SheetUseCase)

// WithClock reemplaza el reloj (testing).
func WithClock(now func() time.Time) SheetOption {
	return func(uc *SheetUseCase) { uc.now = now }
}

// WithIDGenerator reemplaza el generador de IDs (testing).
func WithIDGenerator(newID func() string) SheetOption {
	return func(uc *SheetUseCase) { uc.newID = newID }
}

// Create crea una hoja DRAFT con filas pre-sembradas y el evento STARTED.
// Solo roles staging y admin. El ID se asigna aquí y nunca cambia.
func (uc *SheetUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateSheetRequest) (*entity.Sheet, error) {
	if actor.Role != entity.RoleStaging && actor.Role != entity.RoleAdmin {
		return nil, domain.ErrPermissionDenied
	}
	s := &entity.Sheet{
		ID:             uc.newID(),
		Shift:          in.Shift,
		Date:           in.Date,
		SupervisorName: in.SupervisorName,
		Destination:    in.Destination,
		LoadingDockNo:  in.LoadingDockNo,
	}
	uc.engine.Start(s, actor)
	sheet.Recalculate(s)
	if err := uc.repo.Create(ctx, s); err != nil {
		uc.notifier.Failure(s.ID, "no se pudo crear la hoja")
		return nil, err
	}
	return s, nil
}

// Get devuelve el estado más reciente de la hoja: el de la sesión de edición
// abierta si existe (puede tener ediciones aún no persistidas), si no el del
// almacén.
func (uc *SheetUseCase) Get(ctx context.Context, id string) (*entity.Sheet, error) {
	if sess := uc.sessions.Peek(id); sess != nil {
		return sess.Snapshot(), nil
	}
	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// List lista hojas filtradas. El destino se normaliza (sin tildes,
// minúsculas) antes de comparar.
func (uc *SheetUseCase) List(ctx context.Context, in dto.SheetListFilter) (*dto.SheetListResponse, error) {
	in.DefaultPage()
	f := repository.SheetFilter{
		Status:      in.Status,
		Destination: textutil.Normalize(in.Destination),
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.DateFrom != "" {
		t, err := time.Parse("2006-01-02", in.DateFrom)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		f.DateFrom = &t
	}
	if in.DateTo != "" {
		t, err := time.Parse("2006-01-02", in.DateTo)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		f.DateTo = &t
	}
	items, err := uc.repo.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.SheetListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}, nil
}

// Edit aplica un lote de ediciones tipadas sobre la sesión de la hoja.
// El guardado es debounced (save progress); las validaciones de transición
// nunca bloquean aquí. Cada edición pasa por la tabla de mutabilidad.
func (uc *SheetUseCase) Edit(ctx context.Context, actor entity.Actor, id string, in dto.EditSheetRequest) (*entity.Sheet, error) {
	sess, err := uc.sessions.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	edits := make([]sheet.Edit, 0, len(in.Edits))
	for _, d := range in.Edits {
		e, err := d.ToEdit(uc.newID)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	err = sess.Mutate(func(s *entity.Sheet) error {
		for _, e := range edits {
			if err := sheet.Apply(s, actor, e); err != nil {
				return err
			}
		}
		s.UpdatedAt = uc.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Flush fuerza el guardado sincrónico de la sesión (cliente navegando fuera).
func (uc *SheetUseCase) Flush(ctx context.Context, id string) error {
	sess := uc.sessions.Peek(id)
	if sess == nil {
		return nil // sin sesión abierta no hay nada pendiente
	}
	if err := sess.Flush(ctx); err != nil {
		uc.notifier.Failure(id, "no se pudo guardar el avance")
		return err
	}
	return nil
}

// Delete borrado duro y explícito; solo admin.
func (uc *SheetUseCase) Delete(ctx context.Context, actor entity.Actor, id string) error {
	if actor.Role != entity.RoleAdmin {
		return domain.ErrPermissionDenied
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.sessions.Drop(id)
	return nil
}

// transition ejecuta fn como transición explícita: drena los auto-guardados
// pendientes, aplica y persiste sincrónicamente antes de reportar éxito.
func (uc *SheetUseCase) transition(ctx context.Context, id, okMsg string, fn func(*entity.Sheet) error) (*entity.Sheet, error) {
	sess, err := uc.sessions.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.Transition(ctx, fn); err != nil {
		uc.notifier.Failure(id, "la operación no se pudo completar")
		return nil, err
	}
	uc.notifier.Success(id, okMsg)
	return sess.Snapshot(), nil
}

// SubmitStaging envía el plan de staging a verificación.
func (uc *SheetUseCase) SubmitStaging(ctx context.Context, actor entity.Actor, id string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "hoja enviada a verificación de staging", func(s *entity.Sheet) error {
		return uc.engine.SubmitStaging(s, actor)
	})
}

// VerifyStaging aprueba el staging, bloquea la hoja y materializa el plan de carga.
func (uc *SheetUseCase) VerifyStaging(ctx context.Context, actor entity.Actor, id string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "staging verificado; hoja bloqueada", func(s *entity.Sheet) error {
		return uc.engine.VerifyStaging(s, actor)
	})
}

// RejectStaging devuelve la hoja a DRAFT con motivo obligatorio.
func (uc *SheetUseCase) RejectStaging(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "staging rechazado", func(s *entity.Sheet) error {
		return uc.engine.RejectStaging(s, actor, reason)
	})
}

// SubmitLoading envía la carga a verificación.
func (uc *SheetUseCase) SubmitLoading(ctx context.Context, actor entity.Actor, id, signerName string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "carga enviada a verificación", func(s *entity.Sheet) error {
		return uc.engine.SubmitLoading(s, actor, signerName)
	})
}

// ApproveLoading completa la hoja (estado terminal).
func (uc *SheetUseCase) ApproveLoading(ctx context.Context, actor entity.Actor, id string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "despacho completado", func(s *entity.Sheet) error {
		return uc.engine.ApproveLoading(s, actor)
	})
}

// RejectLoading devuelve la hoja a LOCKED con motivo obligatorio.
func (uc *SheetUseCase) RejectLoading(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "carga rechazada", func(s *entity.Sheet) error {
		return uc.engine.RejectLoading(s, actor, reason)
	})
}

// ToggleItemRejection marca/desmarca la discrepancia de un SKU; persiste de
// inmediato sin cambiar el estado de la hoja.
func (uc *SheetUseCase) ToggleItemRejection(ctx context.Context, actor entity.Actor, id string, srNo int, reason string) (*entity.Sheet, error) {
	return uc.transition(ctx, id, "marca de discrepancia actualizada", func(s *entity.Sheet) error {
		return uc.engine.ToggleItemRejection(s, actor, srNo, reason)
	})
}
