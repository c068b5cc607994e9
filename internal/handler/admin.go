package handler

import (
	"net/http"
	"strconv"

	"frutapack/internal/apierror"
	"frutapack/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var colasDLQ = map[string]string{
	"analisis": worker.QueueAnalisis,
	"reporte":  worker.QueueReporte,
	"email":    worker.QueueEmail,
}

// ReintentarDLQ godoc
// @Summary      Reencolar trabajos fallidos
// @Description  Mueve hasta n entradas de la cola de fallidos de vuelta a su cola original.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        cola path  string true  "analisis | reporte | email"
// @Param        n    query int    false "Maximo de entradas (default 100)"
// @Success      200  {object} map[string]interface{}
// @Failure      404  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/admin/dlq/{cola}/reintentar [post]
func ReintentarDLQ(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		queue, ok := colasDLQ[c.Param("cola")]
		if !ok {
			c.JSON(http.StatusNotFound, apierror.New("Cola desconocida"))
			return
		}
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, apierror.New("Redis no configurado"))
			return
		}
		n, err := strconv.Atoi(c.DefaultQuery("n", "100"))
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, apierror.New("n debe ser un entero positivo"))
			return
		}

		movidos, err := worker.Requeue(c.Request.Context(), rdb, queue, n)
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Int("movidos", movidos).Msg("dlq: requeue interrumpido")
			c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
			return
		}
		log.Info().Str("queue", queue).Int("movidos", movidos).Msg("dlq: entradas reencoladas")
		c.JSON(http.StatusOK, gin.H{"cola": c.Param("cola"), "reencolados": movidos})
	}
}
