package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Despachos-api/internal/application/dto"
	"github.com/jhoicas/Despachos-api/internal/application/editsession"
	"github.com/jhoicas/Despachos-api/internal/application/ports"
	"github.com/jhoicas/Despachos-api/internal/application/usecase"
	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
	"github.com/jhoicas/Despachos-api/internal/domain/repository"
	"github.com/jhoicas/Despachos-api/internal/domain/sheet"
	"github.com/jhoicas/Despachos-api/pkg/logger"
	"github.com/jhoicas/Despachos-api/pkg/textutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fake en memoria del almacén de hojas
// ──────────────────────────────────────────────────────────────────────────────

type memSheetRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.Sheet
}

var _ repository.SheetRepository = (*memSheetRepo)(nil)

func newMemSheetRepo() *memSheetRepo {
	return &memSheetRepo{docs: make(map[string]*entity.Sheet)}
}

func (r *memSheetRepo) Create(_ context.Context, s *entity.Sheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Revision = 1
	r.docs[s.ID] = s.Clone()
	return nil
}

func (r *memSheetRepo) Replace(_ context.Context, s *entity.Sheet, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.docs[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Revision != expectedRevision {
		return domain.ErrStaleRevision
	}
	s.Revision = expectedRevision + 1
	r.docs[s.ID] = s.Clone()
	return nil
}

func (r *memSheetRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *memSheetRepo) FindByID(_ context.Context, id string) (*entity.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *memSheetRepo) Query(_ context.Context, f repository.SheetFilter) ([]*entity.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Sheet
	for _, s := range r.docs {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Destination != "" && !strings.Contains(textutil.Normalize(s.Destination), f.Destination) {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSheetRepo) Changes(ctx context.Context) (<-chan repository.ChangeEvent, error) {
	ch := make(chan repository.ChangeEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

var (
	ucStaging   = entity.Actor{ID: "u-1", Username: "staging1", FullName: "Op Staging", Role: entity.RoleStaging}
	ucLoading   = entity.Actor{ID: "u-2", Username: "loading1", FullName: "Op Carga", Role: entity.RoleLoading}
	ucShiftLead = entity.Actor{ID: "u-3", Username: "lead1", FullName: "Jefe Turno", Role: entity.RoleShiftLead}
	ucAdmin     = entity.Actor{ID: "u-4", Username: "admin1", FullName: "Admin", Role: entity.RoleAdmin}
)

func newTestUC(t *testing.T) (*usecase.SheetUseCase, *memSheetRepo) {
	t.Helper()
	repo := newMemSheetRepo()
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	// debounce 0: los guardados solo ocurren en flush/transiciones (determinista)
	sessions := editsession.NewManager(repo, 0, log)
	n := 0
	uc := usecase.NewSheetUseCase(repo, sessions, sheet.NewEngine(), ports.NopNotifier{},
		usecase.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("uc-id-%d", n)
		}),
	)
	return uc, repo
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// createDraft crea una hoja y devuelve su ID.
func createDraft(t *testing.T, uc *usecase.SheetUseCase) string {
	t.Helper()
	s, err := uc.Create(context.Background(), ucStaging, dto.CreateSheetRequest{
		Shift:         "A",
		Date:          "2025-06-15",
		Destination:   "Bogotá",
		LoadingDockNo: "D-07",
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusDraft, s.Status)
	return s.ID
}

// stageOneSKU edita la fila 1 del plan de staging vía el caso de uso.
func stageOneSKU(t *testing.T, uc *usecase.SheetUseCase, id string) {
	t.Helper()
	_, err := uc.Edit(context.Background(), ucStaging, id, dto.EditSheetRequest{
		Edits: []dto.EditDTO{
			{Type: dto.EditTypeStagingItem, SrNo: 1, SKUName: strPtr("Caja 12x600ml"), CasesPerPlt: intPtr(10), FullPlt: intPtr(3), Loose: intPtr(2)},
		},
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestSheetUseCase_Create_SoloStagingOAdmin(t *testing.T) {
	uc, repo := newTestUC(t)

	id := createDraft(t, uc)
	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored, "la hoja debe quedar persistida al crearla")
	assert.Len(t, stored.StagingItems, entity.SeedStagingRows)
	assert.Equal(t, int64(1), stored.Revision)

	_, err = uc.Create(context.Background(), ucLoading, dto.CreateSheetRequest{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied, "loading no puede crear hojas")
}

func TestSheetUseCase_EditYFlush_PersisteElAvance(t *testing.T) {
	uc, repo := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)

	stageOneSKU(t, uc, id)

	// Sin flush el almacén sigue en la revisión inicial (debounce desactivado).
	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.StagingItems[0].SKUName)

	require.NoError(t, uc.Flush(ctx, id))
	stored, err = repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Caja 12x600ml", stored.StagingItems[0].SKUName)
	assert.Equal(t, 32, stored.StagingItems[0].TtlCases, "10×3+2 casos derivados")
	assert.Equal(t, int64(2), stored.Revision)
}

func TestSheetUseCase_Get_PrefiereLaSesionAbierta(t *testing.T) {
	uc, _ := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)

	stageOneSKU(t, uc, id)

	// Get debe reflejar la edición aún no persistida.
	got, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Caja 12x600ml", got.StagingItems[0].SKUName)
}

func TestSheetUseCase_Get_NoEncontrada(t *testing.T) {
	uc, _ := newTestUC(t)
	_, err := uc.Get(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSheetUseCase_CicloCompletoDeTransiciones(t *testing.T) {
	uc, repo := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)
	stageOneSKU(t, uc, id)

	s, err := uc.SubmitStaging(ctx, ucStaging, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStagingVerificationPending, s.Status)

	s, err = uc.VerifyStaging(ctx, ucShiftLead, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLocked, s.Status)
	require.Len(t, s.LoadingItems, 1, "el plan de carga se materializa al verificar")

	// El lado de carga completa sus campos y su grilla.
	_, err = uc.Edit(ctx, ucLoading, id, dto.EditSheetRequest{
		Edits: []dto.EditDTO{
			{Type: dto.EditTypeHeader, Field: "transporter", Value: "Transportes Andinos"},
			{Type: dto.EditTypeHeader, Field: "vehicleNo", Value: "WXY-123"},
			{Type: dto.EditTypeHeader, Field: "sealNo", Value: "S-9981"},
			{Type: dto.EditTypeLoadingCell, SrNo: 1, Row: 1, Col: 1, CellValue: 10},
			{Type: dto.EditTypeLoadingCell, SrNo: 1, Row: 1, Col: 2, CellValue: 10},
			{Type: dto.EditTypeLoadingCell, SrNo: 1, Row: 1, Col: 3, CellValue: 10},
			{Type: dto.EditTypeLoadingLoose, SrNo: 1, LooseIn: intPtr(2)},
		},
	})
	require.NoError(t, err)

	s, err = uc.SubmitLoading(ctx, ucLoading, id, "Op Carga")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLoadingVerificationPending, s.Status)

	s, err = uc.ApproveLoading(ctx, ucShiftLead, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, s.Status)

	// Cada transición quedó persistida sincrónicamente.
	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.LoadingItems[0].Balance)
}

func TestSheetUseCase_SubmitLoading_CamposFaltantes(t *testing.T) {
	uc, _ := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)
	stageOneSKU(t, uc, id)

	_, err := uc.SubmitStaging(ctx, ucStaging, id)
	require.NoError(t, err)
	_, err = uc.VerifyStaging(ctx, ucShiftLead, id)
	require.NoError(t, err)

	_, err = uc.SubmitLoading(ctx, ucLoading, id, "Op Carga")
	ve, ok := domain.IsValidation(err)
	require.True(t, ok, "faltan transporter/vehicleNo/sealNo: debe ser error de validación")
	assert.Contains(t, ve.Fields, "transporter")
	assert.Contains(t, ve.Fields, "sealNo")
}

func TestSheetUseCase_RejectStaging_RequiereMotivo(t *testing.T) {
	uc, _ := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)
	stageOneSKU(t, uc, id)

	_, err := uc.SubmitStaging(ctx, ucStaging, id)
	require.NoError(t, err)

	_, err = uc.RejectStaging(ctx, ucShiftLead, id, "  ")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	s, err := uc.RejectStaging(ctx, ucShiftLead, id, "faltan cantidades")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, s.Status)
	require.NotEmpty(t, s.Comments)
	assert.Equal(t, "faltan cantidades", s.Comments[len(s.Comments)-1].Text)
}

func TestSheetUseCase_List_FiltraPorEstadoYDestino(t *testing.T) {
	uc, _ := newTestUC(t)
	ctx := context.Background()
	createDraft(t, uc) // destino "Bogotá"

	out, err := uc.List(ctx, dto.SheetListFilter{Destination: "bogota"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1, "la búsqueda por destino ignora tildes")

	out, err = uc.List(ctx, dto.SheetListFilter{Status: entity.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, out.Items)

	_, err = uc.List(ctx, dto.SheetListFilter{DateFrom: "15/06/2025"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "fecha mal formada")
}

func TestSheetUseCase_Delete_SoloAdmin(t *testing.T) {
	uc, repo := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)

	err := uc.Delete(ctx, ucShiftLead, id)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	require.NoError(t, uc.Delete(ctx, ucAdmin, id))
	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSheetUseCase_Edit_LoteFallidoNoMuta(t *testing.T) {
	uc, repo := newTestUC(t)
	ctx := context.Background()
	id := createDraft(t, uc)

	// La segunda edición del lote es inválida: el lote completo se rechaza y
	// la primera tampoco debe quedar aplicada.
	_, err := uc.Edit(ctx, ucStaging, id, dto.EditSheetRequest{
		Edits: []dto.EditDTO{
			{Type: dto.EditTypeHeader, Field: "supervisorName", Value: "Nuevo Supervisor"},
			{Type: dto.EditTypeStagingItem, SrNo: 1, FullPlt: intPtr(-3)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.SupervisorName, "la edición válida previa al fallo no debe sobrevivir")

	// Y no queda nada sucio que un guardado posterior persista.
	require.NoError(t, uc.Flush(ctx, id))
	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Revision)
	assert.Empty(t, stored.SupervisorName)
}

func TestSheetUseCase_Edit_TipoDesconocido(t *testing.T) {
	uc, _ := newTestUC(t)
	id := createDraft(t, uc)

	_, err := uc.Edit(context.Background(), ucStaging, id, dto.EditSheetRequest{
		Edits: []dto.EditDTO{{Type: "renameSheet"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
