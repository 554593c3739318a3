package dto

import (
	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
	"github.com/jhoicas/Despachos-api/internal/domain/sheet"
)

// CreateSheetRequest datos opcionales de cabecera al crear una hoja DRAFT.
type CreateSheetRequest struct {
	Shift          string `json:"shift"`
	Date           string `json:"date"` // YYYY-MM-DD
	SupervisorName string `json:"supervisorName"`
	Destination    string `json:"destination"`
	LoadingDockNo  string `json:"loadingDockNo"`
}

// RejectRequest cuerpo de los endpoints de rechazo; el motivo es obligatorio.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SubmitLoadingRequest cuerpo del envío a verificación de carga.
type SubmitLoadingRequest struct {
	SignerName string `json:"signerName"`
}

// ToggleRejectionRequest motivo opcional al marcar la discrepancia de un SKU.
type ToggleRejectionRequest struct {
	Reason string `json:"reason"`
}

// Tipos de edición aceptados por PATCH /sheets/:id.
const (
	EditTypeHeader              = "header"
	EditTypeStagingItem         = "stagingItem"
	EditTypeLoadingCell         = "loadingCell"
	EditTypeLoadingLoose        = "loadingLoose"
	EditTypeAdditionalItem      = "additionalItem"
	EditTypeAddStagingRow       = "addStagingRow"
	EditTypeRemoveStagingRow    = "removeStagingRow"
	EditTypeAddAdditionalRow    = "addAdditionalRow"
	EditTypeRemoveAdditionalRow = "removeAdditionalRow"
)

// EditDTO unión discriminada por Type de un comando de edición en el wire.
// Los campos no aplicables al tipo se ignoran.
type EditDTO struct {
	Type string `json:"type"`

	Field string `json:"field,omitempty"` // header
	Value string `json:"value,omitempty"` // header

	SrNo        int     `json:"srNo,omitempty"`
	SKUName     *string `json:"skuName,omitempty"`
	CasesPerPlt *int    `json:"casesPerPlt,omitempty"`
	FullPlt     *int    `json:"fullPlt,omitempty"`
	Loose       *int    `json:"loose,omitempty"`

	Row       int  `json:"row,omitempty"`
	Col       int  `json:"col,omitempty"`
	CellValue int  `json:"cellValue,omitempty"`
	LooseIn   *int `json:"looseInput,omitempty"`

	ID    string `json:"id,omitempty"` // additionalItem / removeAdditionalRow
	Slot  *int   `json:"slot,omitempty"`
	Count *int   `json:"count,omitempty"`
}

// ToEdit convierte el DTO al comando de dominio. newID genera el ID de las
// filas adicionales nuevas (el cliente no asigna IDs).
func (d EditDTO) ToEdit(newID func() string) (sheet.Edit, error) {
	switch d.Type {
	case EditTypeHeader:
		return sheet.HeaderEdit{Field: sheet.HeaderField(d.Field), Value: d.Value}, nil
	case EditTypeStagingItem:
		return sheet.StagingItemEdit{
			SrNo:        d.SrNo,
			SKUName:     d.SKUName,
			CasesPerPlt: d.CasesPerPlt,
			FullPlt:     d.FullPlt,
			Loose:       d.Loose,
		}, nil
	case EditTypeLoadingCell:
		return sheet.LoadingCellEdit{SrNo: d.SrNo, Row: d.Row, Col: d.Col, Value: d.CellValue}, nil
	case EditTypeLoadingLoose:
		return sheet.LoadingLooseEdit{SrNo: d.SrNo, Value: d.LooseIn}, nil
	case EditTypeAdditionalItem:
		return sheet.AdditionalItemEdit{ID: d.ID, SKUName: d.SKUName, Slot: d.Slot, Count: d.Count}, nil
	case EditTypeAddStagingRow:
		return sheet.AddStagingRow{}, nil
	case EditTypeRemoveStagingRow:
		return sheet.RemoveStagingRow{SrNo: d.SrNo}, nil
	case EditTypeAddAdditionalRow:
		return sheet.AddAdditionalRow{ID: newID()}, nil
	case EditTypeRemoveAdditionalRow:
		return sheet.RemoveAdditionalRow{ID: d.ID}, nil
	default:
		return nil, domain.ErrInvalidInput
	}
}

// EditSheetRequest cuerpo del PATCH: lote de ediciones tipadas a aplicar en
// orden. Nunca cambia el estado de la hoja.
type EditSheetRequest struct {
	Edits []EditDTO `json:"edits"`
}

// SheetListFilter filtros del listado de hojas.
type SheetListFilter struct {
	Status      string `query:"status"`
	Destination string `query:"destination"`
	DateFrom    string `query:"dateFrom"` // YYYY-MM-DD
	DateTo      string `query:"dateTo"`
	PageRequest
}

// SheetListResponse página de hojas. El documento de hoja es el esquema de
// facto (§ campos del agregado), por eso se responde la entidad tal cual.
type SheetListResponse struct {
	Items []*entity.Sheet `json:"items"`
	Page  PageResponse    `json:"page"`
}
