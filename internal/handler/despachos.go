package handler

import (
	"net/http"

	"frutapack/internal/dto"
	"frutapack/internal/service"

	"github.com/gin-gonic/gin"
)

type DespachosHandler struct{ svc service.DespachoService }

func NewDespachosHandler(svc service.DespachoService) *DespachosHandler {
	return &DespachosHandler{svc: svc}
}

// FoliosAbiertos godoc
// @Summary      Folios de pallets terminados sin despachar
// @Tags         despachos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.FoliosAbiertosResponse
// @Router       /v1/folios/abiertos [get]
func (h *DespachosHandler) FoliosAbiertos(c *gin.Context) {
	resp, err := h.svc.FoliosAbiertos(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Registrar godoc
// @Summary      Registrar despacho
// @Description  Marca los folios como despachados; dejan de aparecer como abiertos.
// @Tags         despachos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarDespachoRequest true "Despacho"
// @Success      201  {object} dto.DespachoResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/despachos [post]
func (h *DespachosHandler) Registrar(c *gin.Context) {
	var req dto.RegistrarDespachoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarDespacho(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
