package sheet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// transición válida de la máquina de estados. Cualquier par (from, to) que
// no esté en la tabla se rechaza sin mutar la hoja ni tocar el historial.
type transition struct {
	from   string
	to     string
	action string
}

// Tabla de aristas. Las dos últimas son las aristas de rechazo.
var transitions = []transition{
	{entity.StatusDraft, entity.StatusStagingVerificationPending, entity.ActionStagingSubmitted},
	{entity.StatusStagingVerificationPending, entity.StatusLocked, entity.ActionStagingVerified},
	{entity.StatusLocked, entity.StatusLoadingVerificationPending, entity.ActionLoadingSubmitted},
	{entity.StatusLoadingVerificationPending, entity.StatusCompleted, entity.ActionCompleted},
	{entity.StatusStagingVerificationPending, entity.StatusDraft, entity.ActionStagingRejected},
	{entity.StatusLoadingVerificationPending, entity.StatusLocked, entity.ActionRejectedLoading},
}

// CanTransition indica si existe la arista (from, to) en la tabla.
func CanTransition(from, to string) bool {
	for _, t := range transitions {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// Engine ejecuta las transiciones del ciclo de vida: valida el guard, aplica
// el efecto y agrega exactamente un HistoryEvent (más un Comment en los
// rechazos). El reloj y el generador de IDs son inyectables para testing.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// Option configura el Engine.
type Option func(*Engine)

// WithClock reemplaza el reloj (testing).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator reemplaza el generador de IDs (testing).
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine construye la máquina de estados con reloj real y UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// guard común: la arista debe existir antes de evaluar cualquier otra cosa.
func (e *Engine) ensureEdge(s *entity.Sheet, to string) error {
	if !CanTransition(s.Status, to) {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (e *Engine) appendHistory(s *entity.Sheet, actor entity.Actor, action, details string) {
	s.History = append(s.History, entity.HistoryEvent{
		ID:        e.newID(),
		Actor:     actor.DisplayName(),
		Action:    action,
		Timestamp: e.now(),
		Details:   details,
	})
}

func (e *Engine) appendComment(s *entity.Sheet, actor entity.Actor, text string) {
	s.Comments = append(s.Comments, entity.Comment{
		ID:        e.newID(),
		Author:    actor.DisplayName(),
		Text:      text,
		Timestamp: e.now(),
	})
}

// Start inicializa una hoja recién creada: estado DRAFT, filas vacías
// pre-sembradas y el evento STARTED con el creador como actor.
func (e *Engine) Start(s *entity.Sheet, actor entity.Actor) {
	now := e.now()
	s.Status = entity.StatusDraft
	s.CreatedBy = actor.ID
	s.CreatedAt = now
	s.UpdatedAt = now
	s.StagingItems = make([]entity.StagingItem, entity.SeedStagingRows)
	for i := range s.StagingItems {
		s.StagingItems[i].SrNo = i + 1
	}
	s.AdditionalItems = make([]entity.AdditionalItem, 0, entity.SeedAdditionalRows)
	for i := 0; i < entity.SeedAdditionalRows; i++ {
		s.AdditionalItems = append(s.AdditionalItems, entity.AdditionalItem{ID: e.newID()})
	}
	e.appendHistory(s, actor, entity.ActionStarted, "hoja creada")
}

// SubmitStaging DRAFT → STAGING_VERIFICATION_PENDING. Solo el dueño de la
// hoja (rol staging) o un admin. Limpia el motivo de rechazo anterior.
func (e *Engine) SubmitStaging(s *entity.Sheet, actor entity.Actor) error {
	if err := e.ensureEdge(s, entity.StatusStagingVerificationPending); err != nil {
		return err
	}
	owner := actor.Role == entity.RoleStaging && s.CreatedBy == actor.ID
	if !owner && actor.Role != entity.RoleAdmin {
		return domain.ErrPermissionDenied
	}
	s.Status = entity.StatusStagingVerificationPending
	s.RejectionReason = ""
	e.appendHistory(s, actor, entity.ActionStagingSubmitted, "")
	s.UpdatedAt = e.now()
	return nil
}

// VerifyStaging STAGING_VERIFICATION_PENDING → LOCKED. Shift lead o admin.
// Fija lockedBy/At y la firma del shift lead, y materializa el plan de carga
// (una sola vez, guardado por bandera persistida).
func (e *Engine) VerifyStaging(s *entity.Sheet, actor entity.Actor) error {
	if err := e.ensureEdge(s, entity.StatusLocked); err != nil {
		return err
	}
	if !actor.IsApprover() {
		return domain.ErrPermissionDenied
	}
	now := e.now()
	s.Status = entity.StatusLocked
	s.LockedBy = actor.DisplayName()
	s.LockedAt = &now
	s.VerifiedBy = actor.DisplayName()
	s.VerifiedAt = &now
	s.SLSign = actor.DisplayName()
	e.MaterializeLoadingPlan(s)
	e.appendHistory(s, actor, entity.ActionStagingVerified, "")
	s.UpdatedAt = now
	return nil
}

// RejectStaging STAGING_VERIFICATION_PENDING → DRAFT. Shift lead o admin,
// motivo obligatorio. Agrega exactamente un Comment y un HistoryEvent.
func (e *Engine) RejectStaging(s *entity.Sheet, actor entity.Actor, reason string) error {
	if err := e.ensureEdge(s, entity.StatusDraft); err != nil {
		return err
	}
	if !actor.IsApprover() {
		return domain.ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrReasonRequired
	}
	s.Status = entity.StatusDraft
	s.RejectionReason = reason
	e.appendComment(s, actor, reason)
	e.appendHistory(s, actor, entity.ActionStagingRejected, reason)
	s.UpdatedAt = e.now()
	return nil
}

// SubmitLoading LOCKED → LOADING_VERIFICATION_PENDING. Rol de carga (o
// admin); exige los campos requeridos del lado de carga y el nombre del
// firmante. Estampa loadingEndTime si aún no está fijado.
func (e *Engine) SubmitLoading(s *entity.Sheet, actor entity.Actor, signerName string) error {
	if err := e.ensureEdge(s, entity.StatusLoadingVerificationPending); err != nil {
		return err
	}
	if actor.Role != entity.RoleLoading && actor.Role != entity.RoleAdmin {
		return domain.ErrPermissionDenied
	}
	if err := validateLoadingSubmit(s, signerName); err != nil {
		return err
	}
	now := e.now()
	s.Status = entity.StatusLoadingVerificationPending
	s.RejectionReason = ""
	s.LoadingSupervisorSign = signerName
	if s.LoadingEndTime == nil {
		s.LoadingEndTime = &now
	}
	e.appendHistory(s, actor, entity.ActionLoadingSubmitted, "")
	s.UpdatedAt = now
	return nil
}

// ApproveLoading LOADING_VERIFICATION_PENDING → COMPLETED (terminal).
// Shift lead o admin. Fija completedBy/At, loadingApprovedBy/At y slSign.
func (e *Engine) ApproveLoading(s *entity.Sheet, actor entity.Actor) error {
	if err := e.ensureEdge(s, entity.StatusCompleted); err != nil {
		return err
	}
	if !actor.IsApprover() {
		return domain.ErrPermissionDenied
	}
	now := e.now()
	s.Status = entity.StatusCompleted
	s.CompletedBy = actor.DisplayName()
	s.CompletedAt = &now
	s.LoadingApprovedBy = actor.DisplayName()
	s.LoadingApprovedAt = &now
	s.SLSign = actor.DisplayName()
	e.appendHistory(s, actor, entity.ActionCompleted, "")
	s.UpdatedAt = now
	return nil
}

// RejectLoading LOADING_VERIFICATION_PENDING → LOCKED. Shift lead o admin,
// motivo obligatorio. Agrega exactamente un Comment y un HistoryEvent.
func (e *Engine) RejectLoading(s *entity.Sheet, actor entity.Actor, reason string) error {
	if err := e.ensureEdge(s, entity.StatusLocked); err != nil {
		return err
	}
	if !actor.IsApprover() {
		return domain.ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrReasonRequired
	}
	s.Status = entity.StatusLocked
	s.RejectionReason = reason
	e.appendComment(s, actor, reason)
	e.appendHistory(s, actor, entity.ActionRejectedLoading, reason)
	s.UpdatedAt = e.now()
	return nil
}

// ToggleItemRejection marca o desmarca la discrepancia de un SKU concreto
// sin cambiar el estado de la hoja. Permitido en cualquier estado no
// terminal para roles de carga y aprobadores.
func (e *Engine) ToggleItemRejection(s *entity.Sheet, actor entity.Actor, srNo int, reason string) error {
	if s.IsTerminal() {
		return domain.ErrSheetFrozen
	}
	if actor.Role != entity.RoleLoading && !actor.IsApprover() {
		return domain.ErrPermissionDenied
	}
	li := s.LoadingItemBySrNo(srNo)
	if li == nil {
		return domain.ErrNotFound
	}
	li.IsRejected = !li.IsRejected
	if li.IsRejected {
		li.RejectionReason = strings.TrimSpace(reason)
	} else {
		li.RejectionReason = ""
	}
	s.UpdatedAt = e.now()
	return nil
}

// MaterializeLoadingPlan genera los LoadingItems desde los StagingItems con
// SKU no vacío. Operación idempotente: la bandera persistida LoadingPlanBuilt
// garantiza una sola materialización por hoja (no es un sync recurrente).
func (e *Engine) MaterializeLoadingPlan(s *entity.Sheet) {
	if s.LoadingPlanBuilt {
		return
	}
	for i := range s.StagingItems {
		st := &s.StagingItems[i]
		if strings.TrimSpace(st.SKUName) == "" {
			continue
		}
		li := entity.LoadingItem{SKUSrNo: st.SrNo}
		RecomputeLoading(s, &li)
		s.LoadingItems = append(s.LoadingItems, li)
	}
	s.LoadingPlanBuilt = true
}

// validateLoadingSubmit lista los campos requeridos que faltan para enviar
// la hoja a verificación de carga. Nunca bloquea un guardado silencioso.
func validateLoadingSubmit(s *entity.Sheet, signerName string) error {
	var missing []string
	if strings.TrimSpace(s.LoadingDockNo) == "" {
		missing = append(missing, "loadingDockNo")
	}
	if strings.TrimSpace(s.Transporter) == "" {
		missing = append(missing, "transporter")
	}
	if strings.TrimSpace(s.VehicleNo) == "" {
		missing = append(missing, "vehicleNo")
	}
	if strings.TrimSpace(s.SealNo) == "" {
		missing = append(missing, "sealNo")
	}
	if strings.TrimSpace(signerName) == "" {
		missing = append(missing, "signerName")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}
