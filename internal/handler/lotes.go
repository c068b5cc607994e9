package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"frutapack/internal/apierror"
	"frutapack/internal/dto"
	"frutapack/internal/service"

	"github.com/gin-gonic/gin"
)

type LotesHandler struct {
	lotes      service.LoteService
	documentos service.DocumentoService
	analisis   service.AnalisisService
}

func NewLotesHandler(lotes service.LoteService, documentos service.DocumentoService, analisis service.AnalisisService) *LotesHandler {
	return &LotesHandler{lotes: lotes, documentos: documentos, analisis: analisis}
}

// Listar godoc
// @Summary      Historial de lotes
// @Description  Lotes confirmados, mas recientes primero, filtrables por productor y rango de fechas.
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        productor query string false "Productor"
// @Param        desde     query string false "Desde (YYYY-MM-DD)"
// @Param        hasta     query string false "Hasta (YYYY-MM-DD)"
// @Param        page      query int    false "Pagina"
// @Param        limit     query int    false "Tamano de pagina"
// @Success      200  {object} dto.LoteListResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/lotes [get]
func (h *LotesHandler) Listar(c *gin.Context) {
	var filter dto.LoteFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if !validar(c, &filter) {
		return
	}
	resp, err := h.lotes.ListarLotes(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Obtener lote
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Success      200  {object} dto.LoteResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes/{codigo} [get]
func (h *LotesHandler) Obtener(c *gin.Context) {
	resp, err := h.lotes.ObtenerLote(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reabrir godoc
// @Summary      Reabrir lote
// @Description  Reconstruye una sesion en modo actualizacion a partir del lote guardado.
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Success      201  {object} dto.ComposicionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/lotes/{codigo}/reabrir [post]
func (h *LotesHandler) Reabrir(c *gin.Context) {
	resp, err := h.lotes.Reabrir(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Reporte godoc
// @Summary      Reporte PDF del lote
// @Tags         lotes
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Success      200  {file} file
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes/{codigo}/reporte [get]
func (h *LotesHandler) Reporte(c *gin.Context) {
	codigo := c.Param("codigo")
	var buf bytes.Buffer
	if err := h.documentos.ReporteLote(c.Request.Context(), codigo, &buf); err != nil {
		responderError(c, err)
		return
	}
	enviarPDF(c, fmt.Sprintf("lote-%s.pdf", codigo), buf.Bytes())
}

// Etiqueta godoc
// @Summary      Etiqueta PDF de pallet terminado
// @Tags         lotes
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Param        linea  path int    true "Indice de la linea de produccion"
// @Success      200  {file} file
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes/{codigo}/etiquetas/{linea} [get]
func (h *LotesHandler) Etiqueta(c *gin.Context) {
	linea, ok := paramIndice(c, "linea")
	if !ok {
		return
	}
	codigo := c.Param("codigo")
	var buf bytes.Buffer
	if err := h.documentos.EtiquetaLinea(c.Request.Context(), codigo, linea, &buf); err != nil {
		responderError(c, err)
		return
	}
	enviarPDF(c, fmt.Sprintf("etiqueta-%s-%d.pdf", codigo, linea), buf.Bytes())
}

// SolicitarAnalisis godoc
// @Summary      Solicitar analisis del lote
// @Description  Encola la generacion del comentario narrativo. Nunca falla por el backend de analisis.
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Success      202  {object} dto.AnalisisResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes/{codigo}/analisis [post]
func (h *LotesHandler) SolicitarAnalisis(c *gin.Context) {
	resp, err := h.analisis.Solicitar(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// ObtenerAnalisis godoc
// @Summary      Estado del analisis del lote
// @Tags         lotes
// @Produce      json
// @Security     BearerAuth
// @Param        codigo path string true "Codigo del lote"
// @Success      200  {object} dto.AnalisisResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/lotes/{codigo}/analisis [get]
func (h *LotesHandler) ObtenerAnalisis(c *gin.Context) {
	resp, err := h.analisis.Obtener(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func enviarPDF(c *gin.Context, nombre string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", nombre))
	c.Data(http.StatusOK, "application/pdf", data)
}
