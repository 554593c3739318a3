// Package editsession implementa el controlador de sesión de edición: buffer
// de ediciones locales por hoja, guardado automático con debounce, a lo sumo
// un guardado en vuelo por hoja y conciliación de snapshots remotos contra
// ediciones locales pendientes.
package editsession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// SaveFunc persiste el documento completo exigiendo la revisión esperada
// (compare-and-swap). En éxito debe incrementar s.Revision.
type SaveFunc func(ctx context.Context, s *entity.Sheet, expectedRevision int64) error

// Session sesión de edición de una hoja. Todas las mutaciones pasan por
// Mutate; el guardado usa siempre el estado más reciente, no la instantánea
// del momento en que arrancó el timer.
type Session struct {
	mu   sync.Mutex
	cond *sync.Cond // señal de fin de guardado en vuelo

	sheet *entity.Sheet // último estado local

	localRev uint64 // contador monótono: ++ en cada mutación
	savedRev uint64 // localRev capturado al arrancar el último guardado
	dirty    bool
	inFlight bool
	stale    bool // el último CAS falló; se necesita recarga remota

	debounce time.Duration
	timer    *time.Timer
	save     SaveFunc
}

// NewSession crea la sesión sobre el estado recién leído del almacén.
func NewSession(s *entity.Sheet, debounce time.Duration, save SaveFunc) *Session {
	sess := &Session{
		sheet:    s.Clone(),
		debounce: debounce,
		save:     save,
	}
	sess.cond = sync.NewCond(&sess.mu)
	return sess
}

// Snapshot copia del estado local actual (para lecturas).
func (s *Session) Snapshot() *entity.Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet.Clone()
}

// Dirty indica si hay ediciones locales sin persistir.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LocalRevision valor actual del contador local (testing/diagnóstico).
func (s *Session) LocalRevision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localRev
}

// Mutate aplica una mutación al estado local. fn opera sobre una copia y el
// resultado se adopta solo si fn termina sin error: una mutación rechazada a
// mitad de camino (lote de ediciones que falla en la N-ésima) no deja rastro.
// En éxito incrementa el contador local y (re)programa el guardado automático
// tras la ventana de quiescencia.
func (s *Session) Mutate(fn func(*entity.Sheet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.sheet.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.sheet = next
	s.localRev++
	s.dirty = true
	s.scheduleLocked()
	return nil
}

// scheduleLocked (re)arma el timer de debounce. Llamar con mu tomado.
func (s *Session) scheduleLocked() {
	if s.debounce <= 0 {
		return // sin auto-guardado; solo Flush explícito
	}
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		// El contexto del auto-guardado no está ligado a ninguna petición.
		_ = s.saveLatest(context.Background(), false)
	})
}

// Flush guarda sincrónicamente el estado más reciente. Se serializa con
// cualquier auto-guardado pendiente: espera el vuelo actual y reintenta
// hasta quedar limpio o fallar.
func (s *Session) Flush(ctx context.Context) error {
	return s.saveLatest(ctx, true)
}

// saveLatest núcleo del guardado. Con wait=false (auto-guardado) un vuelo en
// curso absorbe la petición: el re-chequeo posterior al vuelo reprograma si
// el contador avanzó. Con wait=true (flush/transición) espera y repite hasta
// persistir todo lo local.
func (s *Session) saveLatest(ctx context.Context, wait bool) error {
	s.mu.Lock()
	for {
		if !wait && s.inFlight {
			// Coalescencia: el guardado en vuelo ya será seguido de otro si
			// este cambio llegó después de su arranque.
			s.mu.Unlock()
			return nil
		}
		for s.inFlight {
			s.cond.Wait()
		}
		if !s.dirty {
			s.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return err
		}

		snapshot := s.sheet.Clone()
		startedRev := s.localRev
		expected := s.sheet.Revision
		s.inFlight = true
		s.mu.Unlock()

		err := s.save(ctx, snapshot, expected)

		s.mu.Lock()
		s.inFlight = false
		s.cond.Broadcast()

		if err != nil {
			// El estado local se conserva siempre; dirty queda puesto para
			// que un reintento (auto o manual) reenvíe.
			if errors.Is(err, domain.ErrStaleRevision) {
				s.stale = true
			}
			s.mu.Unlock()
			return err
		}

		s.sheet.Revision = snapshot.Revision
		if s.localRev == startedRev {
			// Nadie editó durante la latencia: la sesión queda limpia.
			s.dirty = false
			s.mu.Unlock()
			return nil
		}
		// Hubo ediciones durante el guardado: siguen pendientes.
		if !wait {
			s.scheduleLocked()
			s.mu.Unlock()
			return nil
		}
		// flush: volver a iterar hasta drenar todo
	}
}

// ApplyRemote concilia un snapshot remoto (refresh en background o tras un
// conflicto CAS). Si hay ediciones locales pendientes el snapshot entrante
// se descarta; limpia, gana el último estado remoto.
func (s *Session) ApplyRemote(snapshot *entity.Sheet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty && !s.stale {
		return false
	}
	s.sheet = snapshot.Clone()
	s.dirty = false
	s.stale = false
	s.localRev++
	return true
}

// Transition ejecuta una transición explícita del ciclo de vida: drena los
// auto-guardados pendientes, aplica fn sobre el estado más reciente y
// persiste sincrónicamente antes de reportar éxito. Ningún auto-guardado
// viejo puede intercalarse después del commit (serializado por inFlight y
// por el CAS de revisión).
func (s *Session) Transition(ctx context.Context, fn func(*entity.Sheet) error) error {
	// Primero drenar lo pendiente para que la transición parta del estado
	// persistido más reciente.
	if err := s.Flush(ctx); err != nil {
		return err
	}
	if err := s.Mutate(fn); err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return nil
}

// Stop cancela el timer de auto-guardado (cierre de sesión).
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
