package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/Despachos-api/internal/application/analytics"
	"github.com/jhoicas/Despachos-api/internal/application/auth"
	"github.com/jhoicas/Despachos-api/internal/application/usecase"
	"github.com/jhoicas/Despachos-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SheetUC     *usecase.SheetUseCase
	DashboardUC *appanalytics.DashboardUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Sheets (protegido). Los permisos finos por rol/estado viven en el
	// dominio; aquí solo se exige identidad.
	sheets := protected.Group("/sheets")
	sheetHandler := NewSheetHandler(deps.SheetUC)
	sheets.Post("/", sheetHandler.Create)
	sheets.Get("/", sheetHandler.List)
	sheets.Get("/:id", sheetHandler.GetByID)
	sheets.Patch("/:id", sheetHandler.Edit)
	sheets.Delete("/:id", RequireRole(entity.RoleAdmin), sheetHandler.Delete)
	sheets.Post("/:id/flush", sheetHandler.Flush)
	sheets.Post("/:id/submit-staging", sheetHandler.SubmitStaging)
	sheets.Post("/:id/verify-staging", sheetHandler.VerifyStaging)
	sheets.Post("/:id/reject-staging", sheetHandler.RejectStaging)
	sheets.Post("/:id/submit-loading", sheetHandler.SubmitLoading)
	sheets.Post("/:id/approve-loading", sheetHandler.ApproveLoading)
	sheets.Post("/:id/reject-loading", sheetHandler.RejectLoading)
	sheets.Post("/:id/items/:srNo/toggle-rejection", sheetHandler.ToggleItemRejection)

	// Dashboard (protegido)
	dashboard := protected.Group("/dashboard")
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	dashboard.Get("/summary", dashboardHandler.GetSummary)
}
