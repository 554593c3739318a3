package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Despachos-api/internal/application/dto"
	"github.com/jhoicas/Despachos-api/internal/application/usecase"
)

// SheetHandler maneja las peticiones HTTP para las hojas de despacho (protegido).
type SheetHandler struct {
	uc *usecase.SheetUseCase
}

// NewSheetHandler construye el handler.
func NewSheetHandler(uc *usecase.SheetUseCase) *SheetHandler {
	return &SheetHandler{uc: uc}
}

// Create godoc
// @Summary      Crear hoja de despacho
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSheetRequest  true  "Cabecera inicial (opcional)"
// @Success      201   {object}  entity.Sheet
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sheets [post]
func (h *SheetHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSheetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Create(c.Context(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar hojas
// @Tags         sheets
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "Filtrar por estado"
// @Param        destination  query  string  false  "Destino (sin distinguir tildes)"
// @Param        dateFrom     query  string  false  "Fecha desde (YYYY-MM-DD)"
// @Param        dateTo       query  string  false  "Fecha hasta (YYYY-MM-DD)"
// @Param        limit        query  int     false  "Límite (default 20)"
// @Param        offset       query  int     false  "Offset"
// @Success      200  {object}  dto.SheetListResponse
// @Router       /api/sheets [get]
func (h *SheetHandler) List(c *fiber.Ctx) error {
	var in dto.SheetListFilter
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	out, err := h.uc.List(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener hoja por ID
// @Tags         sheets
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la hoja"
// @Success      200  {object}  entity.Sheet
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id} [get]
func (h *SheetHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	out, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Edit godoc
// @Summary      Aplicar ediciones a una hoja
// @Description  Lote de ediciones tipadas; el guardado es asíncrono (debounced).
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID de la hoja"
// @Param        body  body  dto.EditSheetRequest  true  "Ediciones a aplicar en orden"
// @Success      200   {object}  entity.Sheet
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sheets/{id} [patch]
func (h *SheetHandler) Edit(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.EditSheetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.Edits) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "edits no puede estar vacío"})
	}
	out, err := h.uc.Edit(c.Context(), GetActor(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Flush godoc
// @Summary      Forzar guardado inmediato
// @Description  Drena las ediciones pendientes de la sesión (cliente saliendo de la vista).
// @Tags         sheets
// @Security     Bearer
// @Param        id  path  string  true  "ID de la hoja"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/flush [post]
func (h *SheetHandler) Flush(c *fiber.Ctx) error {
	if err := h.uc.Flush(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete godoc
// @Summary      Eliminar hoja (solo admin)
// @Tags         sheets
// @Security     Bearer
// @Param        id  path  string  true  "ID de la hoja"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id} [delete]
func (h *SheetHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.Context(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SubmitStaging godoc
// @Summary      Enviar staging a verificación
// @Tags         sheets
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la hoja"
// @Success      200  {object}  entity.Sheet
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/submit-staging [post]
func (h *SheetHandler) SubmitStaging(c *fiber.Ctx) error {
	out, err := h.uc.SubmitStaging(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// VerifyStaging godoc
// @Summary      Verificar staging y bloquear la hoja
// @Tags         sheets
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la hoja"
// @Success      200  {object}  entity.Sheet
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/verify-staging [post]
func (h *SheetHandler) VerifyStaging(c *fiber.Ctx) error {
	out, err := h.uc.VerifyStaging(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RejectStaging godoc
// @Summary      Rechazar staging (motivo obligatorio)
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID de la hoja"
// @Param        body  body  dto.RejectRequest  true  "Motivo del rechazo"
// @Success      200   {object}  entity.Sheet
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/reject-staging [post]
func (h *SheetHandler) RejectStaging(c *fiber.Ctx) error {
	var in dto.RejectRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.RejectStaging(c.Context(), GetActor(c), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SubmitLoading godoc
// @Summary      Enviar carga a verificación
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la hoja"
// @Param        body  body  dto.SubmitLoadingRequest  true  "Firma del supervisor de carga"
// @Success      200   {object}  entity.Sheet
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/submit-loading [post]
func (h *SheetHandler) SubmitLoading(c *fiber.Ctx) error {
	var in dto.SubmitLoadingRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.SubmitLoading(c.Context(), GetActor(c), c.Params("id"), in.SignerName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ApproveLoading godoc
// @Summary      Aprobar carga y completar el despacho
// @Tags         sheets
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la hoja"
// @Success      200  {object}  entity.Sheet
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/approve-loading [post]
func (h *SheetHandler) ApproveLoading(c *fiber.Ctx) error {
	out, err := h.uc.ApproveLoading(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RejectLoading godoc
// @Summary      Rechazar carga (motivo obligatorio)
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID de la hoja"
// @Param        body  body  dto.RejectRequest  true  "Motivo del rechazo"
// @Success      200   {object}  entity.Sheet
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/reject-loading [post]
func (h *SheetHandler) RejectLoading(c *fiber.Ctx) error {
	var in dto.RejectRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.RejectLoading(c.Context(), GetActor(c), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ToggleItemRejection godoc
// @Summary      Marcar/desmarcar discrepancia de un SKU
// @Tags         sheets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true   "ID de la hoja"
// @Param        srNo  path  int                         true   "Número de fila del SKU"
// @Param        body  body  dto.ToggleRejectionRequest  false  "Motivo (opcional)"
// @Success      200   {object}  entity.Sheet
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sheets/{id}/items/{srNo}/toggle-rejection [post]
func (h *SheetHandler) ToggleItemRejection(c *fiber.Ctx) error {
	srNo, err := c.ParamsInt("srNo")
	if err != nil || srNo < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "srNo inválido"})
	}
	var in dto.ToggleRejectionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	out, err := h.uc.ToggleItemRejection(c.Context(), GetActor(c), c.Params("id"), srNo, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
