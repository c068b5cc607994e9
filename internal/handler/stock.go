package handler

import (
	"net/http"

	"frutapack/internal/dto"
	"frutapack/internal/service"

	"github.com/gin-gonic/gin"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// Listar godoc
// @Summary      Stock disponible
// @Description  Pallets y remanentes generales de recepciones no consumidas, con peso neto descontada la tara.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.StockResponse
// @Failure      500  {object} apierror.APIError
// @Router       /v1/stock [get]
func (h *StockHandler) Listar(c *gin.Context) {
	resp, err := h.svc.ListarDisponible(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EditarPallet godoc
// @Summary      Editar o dividir un pallet
// @Description  Sin parte_b corrige peso, bandejas o clasificacion. Con parte_b divide el pallet en dos; la suma de las partes debe cuadrar con el original.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string                  true "UUID de la recepcion"
// @Param        folio path string                  true "Folio del pallet"
// @Param        body  body dto.EditarPalletRequest true "Partes resultantes"
// @Success      200  {object} dto.EditarPalletResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/recepciones/{id}/pallets/{folio} [put]
func (h *StockHandler) EditarPallet(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.EditarPalletRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditarPallet(c.Request.Context(), id, c.Param("folio"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
