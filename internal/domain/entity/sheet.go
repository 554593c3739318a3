package entity

import "time"

// Estados del ciclo de vida de una hoja de despacho.
// El flujo lineal es DRAFT → STAGING_VERIFICATION_PENDING → LOCKED →
// LOADING_VERIFICATION_PENDING → COMPLETED, con dos aristas de rechazo
// que regresan a DRAFT y a LOCKED respectivamente. COMPLETED es terminal.
const (
	StatusDraft                      = "DRAFT"
	StatusStagingVerificationPending = "STAGING_VERIFICATION_PENDING"
	StatusLocked                     = "LOCKED"
	StatusLoadingVerificationPending = "LOADING_VERIFICATION_PENDING"
	StatusCompleted                  = "COMPLETED"
)

// Acciones del historial (conjunto cerrado; append-only).
const (
	ActionStarted          = "STARTED"
	ActionStagingSubmitted = "STAGING_SUBMITTED"
	ActionStagingVerified  = "STAGING_VERIFIED"
	ActionStagingRejected  = "STAGING_REJECTED"
	ActionLoadingSubmitted = "LOADING_SUBMITTED"
	ActionRejectedLoading  = "REJECTED_LOADING"
	ActionCompleted        = "COMPLETED"
)

// SlotsPerRow posiciones de pallet por fila de la grilla de carga.
const SlotsPerRow = 10

// Filas vacías pre-sembradas al crear una hoja. Después de la creación las
// colecciones solo crecen o se reducen con operaciones add/remove explícitas.
const (
	SeedStagingRows    = 10
	SeedAdditionalRows = 5
)

// Sheet es la raíz del agregado: una operación de staging+carga desde su
// creación hasta el despacho. Se persiste completa como documento JSON;
// los nombres de campo son el esquema de facto que consumen los reportes.
type Sheet struct {
	ID             string `json:"id"` // inmutable una vez asignado
	Status         string `json:"status"`
	Shift          string `json:"shift"`
	Date           string `json:"date"` // YYYY-MM-DD
	SupervisorName string `json:"supervisorName"`
	Destination    string `json:"destination"`
	LoadingDockNo  string `json:"loadingDockNo"`
	Transporter    string `json:"transporter"`
	VehicleNo      string `json:"vehicleNo"`
	SealNo         string `json:"sealNo"`

	StagingItems    []StagingItem    `json:"stagingItems"`
	LoadingItems    []LoadingItem    `json:"loadingItems"`
	AdditionalItems []AdditionalItem `json:"additionalItems"`
	Comments        []Comment        `json:"comments"`
	History         []HistoryEvent   `json:"history"`

	RejectionReason string `json:"rejectionReason,omitempty"`

	// Firmas por rol (payload de imagen en base64 o nombre del firmante).
	SLSign                string `json:"slSign,omitempty"`
	LoadingSupervisorSign string `json:"loadingSupervisorSign,omitempty"`
	DEOSign               string `json:"deoSign,omitempty"`

	LockedBy          string     `json:"lockedBy,omitempty"`
	LockedAt          *time.Time `json:"lockedAt,omitempty"`
	VerifiedBy        string     `json:"verifiedBy,omitempty"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	LoadingApprovedBy string     `json:"loadingApprovedBy,omitempty"`
	LoadingApprovedAt *time.Time `json:"loadingApprovedAt,omitempty"`
	CompletedBy       string     `json:"completedBy,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`

	LoadingStartTime *time.Time `json:"loadingStartTime,omitempty"`
	LoadingEndTime   *time.Time `json:"loadingEndTime,omitempty"`

	// LoadingPlanBuilt marca que los LoadingItems ya fueron materializados
	// desde los StagingItems; la materialización ocurre exactamente una vez.
	LoadingPlanBuilt bool `json:"loadingPlanBuilt"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Revision es el token de compare-and-swap del guardado: Replace exige
	// la revisión leída y falla con ErrStaleRevision si otro escritor ganó.
	Revision int64 `json:"revision"`
}

// StagingItem una línea del plan de staging: cuántos pallets completos y
// cajas sueltas se esperan por SKU. TtlCases es derivado; nunca lo fija el caller.
type StagingItem struct {
	SrNo        int    `json:"srNo"` // 1-based, denso, único dentro de la hoja
	SKUName     string `json:"skuName"`
	CasesPerPlt int    `json:"casesPerPlt"`
	FullPlt     int    `json:"fullPlt"`
	Loose       int    `json:"loose"`
	TtlCases    int    `json:"ttlCases"` // casesPerPlt*fullPlt + loose
}

// Cell una posición de pallet con cajas contadas. col ∈ [0,9]; el índice
// absoluto del slot es row*10+col.
type Cell struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Value int `json:"value"`
}

// LoadingItem el conteo real cargado contra una línea de staging.
// Total y Balance son derivados: Total = Σ celdas + looseInput;
// Balance = ttlCases del staging − Total (negativo = sobrecarga).
type LoadingItem struct {
	SKUSrNo         int    `json:"skuSrNo"` // referencia a StagingItem.SrNo
	Cells           []Cell `json:"cells"`   // sparse
	LooseInput      *int   `json:"looseInput,omitempty"`
	Total           int    `json:"total"`
	Balance         int    `json:"balance"`
	IsRejected      bool   `json:"isRejected"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// AdditionalItem cajas cargadas fuera del plan de staging. Siempre aditivo;
// nunca reduce el balance de ningún LoadingItem.
type AdditionalItem struct {
	ID      string  `json:"id"`
	SKUName string  `json:"skuName"`
	Counts  [10]int `json:"counts"`
	Total   int     `json:"total"` // Σ counts
}

// Comment anotación libre, append-only (principalmente motivos de rechazo).
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEvent registro de auditoría, append-only; nunca se edita ni elimina.
type HistoryEvent struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// IsTerminal indica si la hoja ya no admite ninguna transición ni edición.
func (s *Sheet) IsTerminal() bool {
	return s.Status == StatusCompleted
}

// StagingItemBySrNo busca la línea de staging con el SrNo dado.
func (s *Sheet) StagingItemBySrNo(srNo int) *StagingItem {
	for i := range s.StagingItems {
		if s.StagingItems[i].SrNo == srNo {
			return &s.StagingItems[i]
		}
	}
	return nil
}

// LoadingItemBySrNo busca el conteo de carga asociado al SrNo de staging dado.
func (s *Sheet) LoadingItemBySrNo(srNo int) *LoadingItem {
	for i := range s.LoadingItems {
		if s.LoadingItems[i].SKUSrNo == srNo {
			return &s.LoadingItems[i]
		}
	}
	return nil
}
