package ports

// Notifier sumidero de notificaciones fire-and-forget. El core lo invoca
// para reportar resultados al usuario pero no depende de su entrega.
type Notifier interface {
	Success(sheetID, message string)
	Failure(sheetID, message string)
}

// NopNotifier descarta todas las notificaciones (testing).
type NopNotifier struct{}

func (NopNotifier) Success(string, string) {}
func (NopNotifier) Failure(string, string) {}
