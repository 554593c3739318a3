package editsession

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/Despachos-api/internal/domain"
	"github.com/jhoicas/Despachos-api/internal/domain/repository"
	"github.com/jhoicas/Despachos-api/pkg/logger"
)

// Manager mantiene a lo sumo una sesión de edición por hoja y concilia las
// notificaciones de cambio del almacén contra las sesiones abiertas.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	repo     repository.SheetRepository
	debounce time.Duration
	log      *logger.Logger
}

// NewManager construye el administrador de sesiones.
func NewManager(repo repository.SheetRepository, debounce time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		repo:     repo,
		debounce: debounce,
		log:      log,
	}
}

// Session devuelve la sesión de la hoja, creándola desde el almacén si no
// existe. Una sola sesión viva por hoja (un escritor lógico por cliente).
func (m *Manager) Session(ctx context.Context, sheetID string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[sheetID]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	doc, err := m.repo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Pudo haberse creado mientras leíamos: gana la existente.
	if sess, ok := m.sessions[sheetID]; ok {
		return sess, nil
	}
	sess := NewSession(doc, m.debounce, m.repo.Replace)
	m.sessions[sheetID] = sess
	return sess, nil
}

// Peek devuelve la sesión abierta de la hoja o nil, sin crearla.
func (m *Manager) Peek(sheetID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sheetID]
}

// Drop cierra y descarta la sesión de una hoja (borrado o fin de edición).
func (m *Manager) Drop(sheetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sheetID]; ok {
		sess.Stop()
		delete(m.sessions, sheetID)
	}
}

// Watch consume el stream de cambios del almacén hasta que ctx se cancela.
// Cada evento invalida la sesión abierta: se re-lee el documento y se aplica
// como snapshot remoto (la sesión lo descarta si tiene ediciones pendientes).
func (m *Manager) Watch(ctx context.Context) error {
	events, err := m.repo.Changes(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		m.mu.Lock()
		sess, ok := m.sessions[ev.SheetID]
		m.mu.Unlock()
		if !ok {
			continue
		}
		if ev.Op == "deleted" {
			m.Drop(ev.SheetID)
			continue
		}
		doc, err := m.repo.FindByID(ctx, ev.SheetID)
		if err != nil || doc == nil {
			if err != nil {
				m.log.Warn().Err(err).Str("sheet_id", ev.SheetID).Msg("refresh tras notificación de cambio")
			}
			continue
		}
		if applied := sess.ApplyRemote(doc); !applied {
			m.log.Debug().Str("sheet_id", ev.SheetID).Msg("snapshot remoto descartado: ediciones locales pendientes")
		}
	}
	return nil
}
