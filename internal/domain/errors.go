package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrPermissionDenied   = errors.New("acceso denegado para el rol/estado actual")
	ErrInvalidTransition  = errors.New("transición de estado no permitida")
	ErrSheetFrozen        = errors.New("la hoja está completada y no admite cambios")
	ErrReasonRequired     = errors.New("el motivo de rechazo es obligatorio")
	ErrStaleRevision      = errors.New("la hoja fue modificada por otro usuario; recargue e intente de nuevo")
)

// ValidationError lista los campos que impiden una transición.
// Bloquea submit/approve pero nunca el guardado silencioso de un borrador.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("campos requeridos: %s", strings.Join(e.Fields, ", "))
}

// IsValidation indica si err es un error de validación y devuelve los campos faltantes.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
