package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin     = "admin"
	RoleShiftLead = "shift_lead"
	RoleStaging   = "staging"
	RoleLoading   = "loading"
	RoleDEO       = "deo"
)

// User representa un usuario del sistema.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	FullName     string
	EmpCode      string
	Role         string // admin, shift_lead, staging, loading, deo
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identidad del usuario que ejecuta una edición o transición.
// La provee el proveedor de identidad (JWT) en cada petición.
type Actor struct {
	ID       string
	Username string
	FullName string
	Role     string
	EmpCode  string
}

// DisplayName nombre a registrar en historial y firmas.
func (a Actor) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}

// IsApprover indica si el actor puede verificar/aprobar/rechazar hojas.
func (a Actor) IsApprover() bool {
	return a.Role == RoleShiftLead || a.Role == RoleAdmin
}
