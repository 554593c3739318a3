package notify

import (
	"github.com/jhoicas/Despachos-api/internal/application/ports"
	"github.com/jhoicas/Despachos-api/pkg/logger"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier sumidero de notificaciones respaldado por el logger. El core
// reporta aquí y no depende de la entrega; un frontend puede reemplazarlo
// por toasts/push sin tocar los casos de uso.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el sumidero.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Success registra un resultado exitoso.
func (n *LogNotifier) Success(sheetID, message string) {
	n.log.Info().Str("sheet_id", sheetID).Str("kind", "success").Msg(message)
}

// Failure registra un fallo reportable al usuario.
func (n *LogNotifier) Failure(sheetID, message string) {
	n.log.Warn().Str("sheet_id", sheetID).Str("kind", "failure").Msg(message)
}
