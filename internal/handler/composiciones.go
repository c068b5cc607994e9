package handler

import (
	"net/http"

	"frutapack/internal/conciliacion"
	"frutapack/internal/dto"
	"frutapack/internal/service"

	"github.com/gin-gonic/gin"
)

// ComposicionesHandler drives the in-memory lot composition sessions.
// Every mutation answers with the full session view and a fresh balance.
type ComposicionesHandler struct{ svc service.LoteService }

func NewComposicionesHandler(svc service.LoteService) *ComposicionesHandler {
	return &ComposicionesHandler{svc: svc}
}

// Iniciar godoc
// @Summary      Iniciar composicion de lote
// @Description  Abre una sesion con los items seleccionados. Si mezclan productores o variedades responde 409 hasta que se reenvie con confirmada=true.
// @Tags         composiciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ProcederRequest true "Items de stock seleccionados"
// @Success      201  {object} dto.ComposicionResponse
// @Failure      409  {object} apierror.ConfirmationError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/composiciones [post]
func (h *ComposicionesHandler) Iniciar(c *gin.Context) {
	var req dto.ProcederRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.IniciarComposicion(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Ver composicion
// @Tags         composiciones
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la sesion"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/composiciones/{id} [get]
func (h *ComposicionesHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerComposicion(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarEntrada godoc
// @Summary      Agregar item de entrada
// @Tags         composiciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                    true "UUID de la sesion"
// @Param        body body dto.AgregarEntradaRequest true "Item de stock"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/composiciones/{id}/entradas [post]
func (h *ComposicionesHandler) AgregarEntrada(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AgregarEntradaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarEntrada(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuitarEntrada godoc
// @Summary      Quitar item de entrada
// @Tags         composiciones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID de la sesion"
// @Param        item path string true "id_unico del item"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/composiciones/{id}/entradas/{item} [delete]
func (h *ComposicionesHandler) QuitarEntrada(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.QuitarEntrada(c.Request.Context(), id, c.Param("item"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarLinea godoc
// @Summary      Agregar linea de produccion
// @Description  La linea nueva recibe el siguiente folio de la secuencia.
// @Tags         composiciones
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la sesion"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/composiciones/{id}/lineas [post]
func (h *ComposicionesHandler) AgregarLinea(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.AgregarLinea(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EditarLinea godoc
// @Summary      Editar linea de produccion
// @Description  Solo cambia los campos presentes. Un folio ya existente hereda formato, peso unitario y pallets.
// @Tags         composiciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID de la sesion"
// @Param        idx  path int                    true "Indice de la linea"
// @Param        body body dto.EditarLineaRequest true "Campos a modificar"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/composiciones/{id}/lineas/{idx} [patch]
func (h *ComposicionesHandler) EditarLinea(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	idx, ok := paramIndice(c, "idx")
	if !ok {
		return
	}
	var req dto.EditarLineaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditarLinea(c.Request.Context(), id, idx, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuitarLinea godoc
// @Summary      Quitar linea de produccion
// @Tags         composiciones
// @Produce      json
// @Security     BearerAuth
// @Param        id  path string true "UUID de la sesion"
// @Param        idx path int    true "Indice de la linea"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/composiciones/{id}/lineas/{idx} [delete]
func (h *ComposicionesHandler) QuitarLinea(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	idx, ok := paramIndice(c, "idx")
	if !ok {
		return
	}
	resp, err := h.svc.QuitarLinea(c.Request.Context(), id, idx)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FijarDescartes godoc
// @Summary      Registrar descartes
// @Description  Kilos manuales de IQF, merma y desecho, mas descartes adicionales con nombre.
// @Tags         composiciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string               true "UUID de la sesion"
// @Param        body body dto.DescartesRequest true "Descartes"
// @Success      200  {object} dto.ComposicionResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/composiciones/{id}/descartes [put]
func (h *ComposicionesHandler) FijarDescartes(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.DescartesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.FijarDescartes(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirmar godoc
// @Summary      Confirmar lote
// @Description  Persiste el lote (creacion o actualizacion) y marca como usados los pallets consumidos. Bloqueado si el balance es negativo.
// @Tags         composiciones
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la sesion"
// @Success      201  {object} dto.ConfirmarResponse "lote creado"
// @Success      200  {object} dto.ConfirmarResponse "lote actualizado"
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.BalanceError
// @Router       /v1/composiciones/{id}/confirmar [post]
func (h *ComposicionesHandler) Confirmar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Confirmar(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Modo == conciliacion.ModoActualizar.String() {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// Cancelar godoc
// @Summary      Cancelar composicion
// @Tags         composiciones
// @Security     BearerAuth
// @Param        id path string true "UUID de la sesion"
// @Success      204
// @Failure      404  {object} apierror.APIError
// @Router       /v1/composiciones/{id} [delete]
func (h *ComposicionesHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Cancelar(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
