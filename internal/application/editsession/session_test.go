package editsession_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Despachos-api/internal/application/editsession"
	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Controlador de sesión de edición: debounce, coalescencia, un guardado en
// vuelo y conciliación de snapshots remotos. Los guardados se controlan con
// canales para hacer deterministas las carreras.
// ──────────────────────────────────────────────────────────────────────────────

// blockingStore un SaveFunc que bloquea hasta que el test lo libere.
type blockingStore struct {
	started chan int64 // revisión esperada del guardado que arrancó
	release chan error
	saves   atomic.Int64
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		started: make(chan int64, 16),
		release: make(chan error, 16),
	}
}

func (b *blockingStore) save(ctx context.Context, s *entity.Sheet, expected int64) error {
	b.started <- expected
	err := <-b.release
	if err == nil {
		b.saves.Add(1)
		s.Revision = expected + 1
	}
	return err
}

// instantSave guarda sin bloquear (para tests que no ejercitan la carrera).
func instantSave(ctx context.Context, s *entity.Sheet, expected int64) error {
	s.Revision = expected + 1
	return nil
}

func baseSheet() *entity.Sheet {
	return &entity.Sheet{ID: "sheet-1", Status: entity.StatusDraft, Revision: 1}
}

func setShift(v string) func(*entity.Sheet) error {
	return func(s *entity.Sheet) error {
		s.Shift = v
		return nil
	}
}

func TestMutate_IncrementaContadorYMarcaSucio(t *testing.T) {
	sess := editsession.NewSession(baseSheet(), 0, instantSave)

	require.False(t, sess.Dirty())
	require.NoError(t, sess.Mutate(setShift("A")))
	require.NoError(t, sess.Mutate(setShift("B")))

	assert.True(t, sess.Dirty())
	assert.Equal(t, uint64(2), sess.LocalRevision(), "contador monótono por mutación")
	assert.Equal(t, "B", sess.Snapshot().Shift)
}

func TestMutate_FallidaNoDejaRastro(t *testing.T) {
	sess := editsession.NewSession(baseSheet(), 0, instantSave)
	require.NoError(t, sess.Mutate(setShift("A")))

	// fn muta a medias y luego falla (lote que se rechaza en la N-ésima
	// edición): el estado adoptado debe ser el anterior, intacto.
	err := sess.Mutate(func(s *entity.Sheet) error {
		s.Shift = "Z"
		s.Destination = "Cali"
		return domain.ErrInvalidInput
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got := sess.Snapshot()
	assert.Equal(t, "A", got.Shift, "la mutación fallida no debe dejar campos a medio aplicar")
	assert.Empty(t, got.Destination)
	assert.Equal(t, uint64(1), sess.LocalRevision(), "el contador no avanza en fallo")
}

func TestFlush_GuardaElEstadoMasReciente(t *testing.T) {
	sess := editsession.NewSession(baseSheet(), 0, instantSave)
	require.NoError(t, sess.Mutate(setShift("A")))
	require.NoError(t, sess.Mutate(setShift("C")))

	require.NoError(t, sess.Flush(context.Background()))
	assert.False(t, sess.Dirty())
	assert.Equal(t, int64(2), sess.Snapshot().Revision, "CAS avanzó la revisión")
}

func TestEdicionDuranteGuardado_NoSePierde(t *testing.T) {
	store := newBlockingStore()
	sess := editsession.NewSession(baseSheet(), 10*time.Millisecond, store.save)

	require.NoError(t, sess.Mutate(setShift("A")))

	// esperar a que el auto-guardado arranque
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("el auto-guardado nunca arrancó")
	}

	// edición estrictamente después del inicio del guardado y antes de
	// completarlo: la bandera sucia debe quedar puesta al completar
	require.NoError(t, sess.Mutate(setShift("B")))
	store.release <- nil

	require.Eventually(t, func() bool { return store.saves.Load() == 1 }, 2*time.Second, time.Millisecond)
	assert.True(t, sess.Dirty(), "la edición hecha durante la latencia no puede perderse")

	// el re-guardado programado termina drenando el cambio
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("no se reprogramó el guardado pendiente")
	}
	store.release <- nil
	require.Eventually(t, func() bool { return !sess.Dirty() }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "B", sess.Snapshot().Shift)
}

func TestUnSoloGuardadoEnVuelo(t *testing.T) {
	store := newBlockingStore()
	sess := editsession.NewSession(baseSheet(), 5*time.Millisecond, store.save)

	require.NoError(t, sess.Mutate(setShift("A")))
	<-store.started

	// varias mutaciones mientras hay un guardado en vuelo: se coalescen,
	// no se encolan como escrituras separadas
	require.NoError(t, sess.Mutate(setShift("B")))
	require.NoError(t, sess.Mutate(setShift("C")))
	require.NoError(t, sess.Mutate(setShift("D")))

	store.release <- nil
	<-store.started // el único guardado de seguimiento
	store.release <- nil

	require.Eventually(t, func() bool { return !sess.Dirty() }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int64(2), store.saves.Load(), "dos escrituras en total: original + coalescida")
	assert.Equal(t, "D", sess.Snapshot().Shift, "el guardado usa el último estado, no un snapshot viejo")
}

func TestFalloDePersistencia_EstadoLocalSeConserva(t *testing.T) {
	store := newBlockingStore()
	sess := editsession.NewSession(baseSheet(), 0, store.save)
	require.NoError(t, sess.Mutate(setShift("A")))

	done := make(chan error, 1)
	go func() { done <- sess.Flush(context.Background()) }()
	<-store.started
	store.release <- context.DeadlineExceeded

	err := <-done
	require.Error(t, err)
	assert.True(t, sess.Dirty(), "dirty queda puesto para que un reintento reenvíe")
	assert.Equal(t, "A", sess.Snapshot().Shift, "el estado en memoria nunca se descarta")

	// reintento manual exitoso
	go func() { done <- sess.Flush(context.Background()) }()
	<-store.started
	store.release <- nil
	require.NoError(t, <-done)
	assert.False(t, sess.Dirty())
}

func TestApplyRemote_DescartadoSiHaySucio(t *testing.T) {
	sess := editsession.NewSession(baseSheet(), 0, instantSave)
	require.NoError(t, sess.Mutate(setShift("local")))

	remote := baseSheet()
	remote.Shift = "remoto"
	remote.Revision = 9

	assert.False(t, sess.ApplyRemote(remote), "con ediciones pendientes gana la memoria")
	assert.Equal(t, "local", sess.Snapshot().Shift)

	// una vez limpia, el último snapshot remoto gana
	require.NoError(t, sess.Flush(context.Background()))
	assert.True(t, sess.ApplyRemote(remote))
	assert.Equal(t, "remoto", sess.Snapshot().Shift)
	assert.Equal(t, int64(9), sess.Snapshot().Revision)
}

func TestApplyRemote_TrasConflictoCAS(t *testing.T) {
	staleSave := func(ctx context.Context, s *entity.Sheet, expected int64) error {
		return domain.ErrStaleRevision
	}
	sess := editsession.NewSession(baseSheet(), 0, staleSave)
	require.NoError(t, sess.Mutate(setShift("local")))
	require.ErrorIs(t, sess.Flush(context.Background()), domain.ErrStaleRevision)

	// tras perder el CAS la recarga remota sí entra, aunque había sucio
	remote := baseSheet()
	remote.Shift = "ganador"
	remote.Revision = 5
	assert.True(t, sess.ApplyRemote(remote))
	assert.Equal(t, "ganador", sess.Snapshot().Shift)
	assert.False(t, sess.Dirty())
}

func TestTransition_SerializadaConAutoGuardado(t *testing.T) {
	store := newBlockingStore()
	sess := editsession.NewSession(baseSheet(), 5*time.Millisecond, store.save)

	// dejar un auto-guardado en vuelo
	require.NoError(t, sess.Mutate(setShift("A")))
	<-store.started

	done := make(chan error, 1)
	go func() {
		done <- sess.Transition(context.Background(), func(s *entity.Sheet) error {
			s.Status = entity.StatusStagingVerificationPending
			return nil
		})
	}()

	// la transición espera el vuelo actual; liberar todos los guardados
	store.release <- nil
	for {
		select {
		case <-store.started:
			store.release <- nil
			continue
		case err := <-done:
			require.NoError(t, err)
		}
		break
	}

	snap := sess.Snapshot()
	assert.Equal(t, entity.StatusStagingVerificationPending, snap.Status)
	assert.False(t, sess.Dirty(), "la transición persiste sincrónicamente antes de reportar éxito")
}

func TestSnapshot_EsCopia(t *testing.T) {
	sess := editsession.NewSession(baseSheet(), 0, instantSave)
	snap := sess.Snapshot()
	snap.Shift = "mutado afuera"
	assert.NotEqual(t, "mutado afuera", sess.Snapshot().Shift)
}
