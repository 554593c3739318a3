package sheet

import (
	"strings"

	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// FieldGroup grupo de campos editables. La mutabilidad se decide por grupo
// en una única tabla estado×rol en lugar de booleanos dispersos.
type FieldGroup string

const (
	GroupStagingHeader   FieldGroup = "staging_header"   // shift, date, supervisor, destino, muelle
	GroupStagingItems    FieldGroup = "staging_items"    // plan de staging
	GroupLoadingHeader   FieldGroup = "loading_header"   // transportador, vehículo, sello, horas, firmas de carga
	GroupLoadingItems    FieldGroup = "loading_items"    // grilla de pallets y loose
	GroupAdditionalItems FieldGroup = "additional_items" // exceso fuera de plan
)

// editRule roles permitidos para un grupo en un estado dado. Admin siempre
// pasa; el dueño se exige aparte para el lado staging en DRAFT.
var editRules = map[string]map[FieldGroup][]string{
	entity.StatusDraft: {
		GroupStagingHeader: {entity.RoleStaging},
		GroupStagingItems:  {entity.RoleStaging},
	},
	// En verificación de staging ningún rol de la tabla edita: la hoja espera
	// al shift lead. Admin conserva su atajo de CanEdit como vía de corrección.
	entity.StatusStagingVerificationPending: {},
	entity.StatusLocked: {
		GroupLoadingHeader:   {entity.RoleLoading, entity.RoleDEO},
		GroupLoadingItems:    {entity.RoleLoading},
		GroupAdditionalItems: {entity.RoleLoading},
	},
	entity.StatusLoadingVerificationPending: {
		GroupLoadingHeader:   {entity.RoleShiftLead},
		GroupLoadingItems:    {entity.RoleShiftLead},
		GroupAdditionalItems: {entity.RoleShiftLead},
	},
	// COMPLETED congela todo: sin entrada en la tabla.
}

// CanEdit consulta la tabla de mutabilidad. Todos los mutadores pasan por
// aquí; ninguna edición toca el agregado si la combinación no está permitida.
func CanEdit(group FieldGroup, status, role string) bool {
	if role == entity.RoleAdmin && status != entity.StatusCompleted {
		return true
	}
	roles, ok := editRules[status][group]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// HeaderField campos de cabecera editables (variante etiquetada en vez de
// setter genérico por nombre de string).
type HeaderField string

const (
	FieldShift            HeaderField = "shift"
	FieldDate             HeaderField = "date"
	FieldSupervisorName   HeaderField = "supervisorName"
	FieldDestination      HeaderField = "destination"
	FieldLoadingDockNo    HeaderField = "loadingDockNo"
	FieldTransporter      HeaderField = "transporter"
	FieldVehicleNo        HeaderField = "vehicleNo"
	FieldSealNo           HeaderField = "sealNo"
	FieldLoadingSuperSign HeaderField = "loadingSupervisorSign"
	FieldDEOSign          HeaderField = "deoSign"
)

// grupo al que pertenece cada campo de cabecera.
var headerGroups = map[HeaderField]FieldGroup{
	FieldShift:            GroupStagingHeader,
	FieldDate:             GroupStagingHeader,
	FieldSupervisorName:   GroupStagingHeader,
	FieldDestination:      GroupStagingHeader,
	FieldLoadingDockNo:    GroupStagingHeader,
	FieldTransporter:      GroupLoadingHeader,
	FieldVehicleNo:        GroupLoadingHeader,
	FieldSealNo:           GroupLoadingHeader,
	FieldLoadingSuperSign: GroupLoadingHeader,
	FieldDEOSign:          GroupLoadingHeader,
}

// Edit es el conjunto cerrado de comandos de edición. Cada variante conoce
// su grupo de campos; Apply valida contra la tabla y recalcula derivados.
type Edit interface {
	Group() FieldGroup
}

// HeaderEdit fija un campo de cabecera.
type HeaderEdit struct {
	Field HeaderField
	Value string
}

// Group devuelve el grupo del campo (staging o loading según la tabla).
func (e HeaderEdit) Group() FieldGroup { return headerGroups[e.Field] }

// StagingItemEdit modifica una línea del plan. Los punteros nil no tocan el
// campo; TtlCases se recalcula siempre, nunca se acepta del caller.
type StagingItemEdit struct {
	SrNo        int
	SKUName     *string
	CasesPerPlt *int
	FullPlt     *int
	Loose       *int
}

func (StagingItemEdit) Group() FieldGroup { return GroupStagingItems }

// LoadingCellEdit fija el valor de una posición de pallet (row, col).
// Value 0 limpia la celda (se elimina de la representación sparse).
type LoadingCellEdit struct {
	SrNo  int
	Row   int
	Col   int
	Value int
}

func (LoadingCellEdit) Group() FieldGroup { return GroupLoadingItems }

// LoadingLooseEdit fija o limpia (nil) el loose input de una línea de carga.
type LoadingLooseEdit struct {
	SrNo  int
	Value *int
}

func (LoadingLooseEdit) Group() FieldGroup { return GroupLoadingItems }

// AdditionalItemEdit modifica un ítem adicional: nombre de SKU o uno de sus
// 10 contadores. Total se recalcula siempre.
type AdditionalItemEdit struct {
	ID      string
	SKUName *string
	Slot    *int
	Count   *int
}

func (AdditionalItemEdit) Group() FieldGroup { return GroupAdditionalItems }

// AddStagingRow agrega una fila vacía al final del plan (SrNo denso).
type AddStagingRow struct{}

func (AddStagingRow) Group() FieldGroup { return GroupStagingItems }

// RemoveStagingRow elimina la fila SrNo y renumera para mantener SrNo denso.
// Si existe un LoadingItem asociado, se elimina y se renumera igualmente.
type RemoveStagingRow struct {
	SrNo int
}

func (RemoveStagingRow) Group() FieldGroup { return GroupStagingItems }

// AddAdditionalRow agrega una fila adicional vacía con el ID dado.
type AddAdditionalRow struct {
	ID string
}

func (AddAdditionalRow) Group() FieldGroup { return GroupAdditionalItems }

// RemoveAdditionalRow elimina la fila adicional con el ID dado.
type RemoveAdditionalRow struct {
	ID string
}

func (RemoveAdditionalRow) Group() FieldGroup { return GroupAdditionalItems }

// Apply ejecuta una edición sobre el agregado: rechaza fuera de la tabla de
// mutabilidad sin mutar nada, valida entradas y reemplaza los derivados.
// El guardado (sesión de edición) es responsabilidad del caller.
func Apply(s *entity.Sheet, actor entity.Actor, e Edit) error {
	if s.IsTerminal() {
		return domain.ErrSheetFrozen
	}
	if !CanEdit(e.Group(), s.Status, actor.Role) {
		return domain.ErrPermissionDenied
	}
	// El lado staging en DRAFT es del dueño de la hoja (admin exento).
	if s.Status == entity.StatusDraft && actor.Role == entity.RoleStaging && s.CreatedBy != actor.ID {
		return domain.ErrPermissionDenied
	}

	switch ed := e.(type) {
	case HeaderEdit:
		return applyHeader(s, ed)
	case StagingItemEdit:
		return applyStagingItem(s, ed)
	case LoadingCellEdit:
		return applyLoadingCell(s, ed)
	case LoadingLooseEdit:
		return applyLoadingLoose(s, ed)
	case AdditionalItemEdit:
		return applyAdditional(s, ed)
	case AddStagingRow:
		s.StagingItems = append(s.StagingItems, entity.StagingItem{SrNo: len(s.StagingItems) + 1})
		return nil
	case RemoveStagingRow:
		return removeStagingRow(s, ed.SrNo)
	case AddAdditionalRow:
		if strings.TrimSpace(ed.ID) == "" {
			return domain.ErrInvalidInput
		}
		s.AdditionalItems = append(s.AdditionalItems, entity.AdditionalItem{ID: ed.ID})
		return nil
	case RemoveAdditionalRow:
		return removeAdditionalRow(s, ed.ID)
	default:
		return domain.ErrInvalidInput
	}
}

func applyHeader(s *entity.Sheet, e HeaderEdit) error {
	switch e.Field {
	case FieldShift:
		s.Shift = e.Value
	case FieldDate:
		s.Date = e.Value
	case FieldSupervisorName:
		s.SupervisorName = e.Value
	case FieldDestination:
		s.Destination = e.Value
	case FieldLoadingDockNo:
		s.LoadingDockNo = e.Value
	case FieldTransporter:
		s.Transporter = e.Value
	case FieldVehicleNo:
		s.VehicleNo = e.Value
	case FieldSealNo:
		s.SealNo = e.Value
	case FieldLoadingSuperSign:
		s.LoadingSupervisorSign = e.Value
	case FieldDEOSign:
		s.DEOSign = e.Value
	default:
		return domain.ErrInvalidInput
	}
	return nil
}

func applyStagingItem(s *entity.Sheet, e StagingItemEdit) error {
	it := s.StagingItemBySrNo(e.SrNo)
	if it == nil {
		return domain.ErrNotFound
	}
	if (e.CasesPerPlt != nil && *e.CasesPerPlt < 0) ||
		(e.FullPlt != nil && *e.FullPlt < 0) ||
		(e.Loose != nil && *e.Loose < 0) {
		return domain.ErrInvalidInput
	}
	if e.SKUName != nil {
		it.SKUName = *e.SKUName
	}
	if e.CasesPerPlt != nil {
		it.CasesPerPlt = *e.CasesPerPlt
	}
	if e.FullPlt != nil {
		it.FullPlt = *e.FullPlt
	}
	if e.Loose != nil {
		it.Loose = *e.Loose
	}
	RecomputeStaging(it)
	// El plan cambió: los balances de carga dependen de ttlCases.
	for i := range s.LoadingItems {
		RecomputeLoading(s, &s.LoadingItems[i])
	}
	return nil
}

func applyLoadingCell(s *entity.Sheet, e LoadingCellEdit) error {
	li := s.LoadingItemBySrNo(e.SrNo)
	if li == nil {
		return domain.ErrNotFound
	}
	if e.Row < 0 || e.Col < 0 || e.Col >= entity.SlotsPerRow || e.Value < 0 {
		return domain.ErrInvalidInput
	}
	idx := -1
	for i, c := range li.Cells {
		if c.Row == e.Row && c.Col == e.Col {
			idx = i
			break
		}
	}
	switch {
	case e.Value == 0 && idx >= 0:
		li.Cells = append(li.Cells[:idx], li.Cells[idx+1:]...)
	case e.Value != 0 && idx >= 0:
		li.Cells[idx].Value = e.Value
	case e.Value != 0:
		li.Cells = append(li.Cells, entity.Cell{Row: e.Row, Col: e.Col, Value: e.Value})
	}
	RecomputeLoading(s, li)
	return nil
}

func applyLoadingLoose(s *entity.Sheet, e LoadingLooseEdit) error {
	li := s.LoadingItemBySrNo(e.SrNo)
	if li == nil {
		return domain.ErrNotFound
	}
	if e.Value != nil && *e.Value < 0 {
		return domain.ErrInvalidInput
	}
	li.LooseInput = e.Value
	RecomputeLoading(s, li)
	return nil
}

func applyAdditional(s *entity.Sheet, e AdditionalItemEdit) error {
	var it *entity.AdditionalItem
	for i := range s.AdditionalItems {
		if s.AdditionalItems[i].ID == e.ID {
			it = &s.AdditionalItems[i]
			break
		}
	}
	if it == nil {
		return domain.ErrNotFound
	}
	// Validación completa antes de tocar el item: una edición rechazada no
	// deja ningún campo a medio aplicar.
	if e.Slot != nil {
		if e.Count == nil || *e.Slot < 0 || *e.Slot >= entity.SlotsPerRow || *e.Count < 0 {
			return domain.ErrInvalidInput
		}
	}
	if e.SKUName != nil {
		it.SKUName = *e.SKUName
	}
	if e.Slot != nil {
		it.Counts[*e.Slot] = *e.Count
	}
	it.Total = AdditionalTotal(it.Counts)
	return nil
}

func removeStagingRow(s *entity.Sheet, srNo int) error {
	idx := -1
	for i := range s.StagingItems {
		if s.StagingItems[i].SrNo == srNo {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}
	s.StagingItems = append(s.StagingItems[:idx], s.StagingItems[idx+1:]...)
	// Renumeración densa y remapeo de los LoadingItems asociados.
	for i := range s.LoadingItems {
		if s.LoadingItems[i].SKUSrNo == srNo {
			s.LoadingItems = append(s.LoadingItems[:i], s.LoadingItems[i+1:]...)
			break
		}
	}
	old2new := make(map[int]int, len(s.StagingItems))
	for i := range s.StagingItems {
		old2new[s.StagingItems[i].SrNo] = i + 1
		s.StagingItems[i].SrNo = i + 1
	}
	for i := range s.LoadingItems {
		if n, ok := old2new[s.LoadingItems[i].SKUSrNo]; ok {
			s.LoadingItems[i].SKUSrNo = n
		}
	}
	Recalculate(s)
	return nil
}

func removeAdditionalRow(s *entity.Sheet, id string) error {
	for i := range s.AdditionalItems {
		if s.AdditionalItems[i].ID == id {
			s.AdditionalItems = append(s.AdditionalItems[:i], s.AdditionalItems[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}
