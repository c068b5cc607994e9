package router

import (
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/config"
	"frutapack/internal/handler"
	"frutapack/internal/infra"
	"frutapack/internal/middleware"
	"frutapack/internal/repository"
	"frutapack/internal/service"
	"frutapack/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: analysis then stays "no disponible" and no report jobs are queued.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, analisisCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	recepcionRepo := repository.NewRecepcionRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	despachoRepo := repository.NewDespachoRepository(db)
	analisisRepo := repository.NewAnalisisRepository(db)

	// ── Async plumbing ───────────────────────────────────────────────────────
	// Interfaces stay nil (not typed-nil) when a backend is missing.
	var encoladorAnalisis service.EncoladorAnalisis
	var encoladorReportes service.EncoladorReportes
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		encoladorReportes = dispatcher
		if cfg.AnalisisURL != "" {
			encoladorAnalisis = dispatcher
		}
	}
	cache := infra.NewCacheAnalisis(rdb, cfg.AnalisisTTL())

	// ── Services ─────────────────────────────────────────────────────────────
	bandeja, pallet := cfg.Tara()
	tara := conciliacion.Tara{Bandeja: bandeja, Pallet: pallet}

	stockSvc := service.NewStockService(recepcionRepo, conciliacion.EditorPallets{Tara: tara, Tolerancia: cfg.Tolerancia()})
	analisisSvc := service.NewAnalisisService(analisisRepo, loteRepo, cache, encoladorAnalisis)
	loteSvc := service.NewLoteService(
		loteRepo, recepcionRepo, despachoRepo,
		analisisSvc, encoladorReportes, cfg.ReporteEmail,
		conciliacion.Configuracion{
			Tara:          tara,
			Folios:        conciliacion.SecuenciadorFolios{Inicio: cfg.FolioInicio, Ancho: cfg.FolioAncho},
			CentroTrabajo: cfg.CentroTrabajo,
		},
		cfg.SesionTTL(),
	)
	documentoSvc := service.NewDocumentoService(loteRepo)
	despachoSvc := service.NewDespachoService(despachoRepo, loteRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(stockSvc)
	composicionesH := handler.NewComposicionesHandler(loteSvc)
	lotesH := handler.NewLotesHandler(loteSvc, documentoSvc, analisisSvc)
	despachosH := handler.NewDespachosHandler(despachoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, analisisCB))

	todos := middleware.RequireRole(middleware.RolOperador, middleware.RolSupervisor, middleware.RolAdministrador)
	supervision := middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/stock", todos, stockH.Listar)
		v1.PUT("/recepciones/:id/pallets/:folio", supervision, stockH.EditarPallet)

		comp := v1.Group("/composiciones", todos)
		{
			comp.POST("", composicionesH.Iniciar)
			comp.GET("/:id", composicionesH.Obtener)
			comp.POST("/:id/entradas", composicionesH.AgregarEntrada)
			comp.DELETE("/:id/entradas/:item", composicionesH.QuitarEntrada)
			comp.POST("/:id/lineas", composicionesH.AgregarLinea)
			comp.PATCH("/:id/lineas/:idx", composicionesH.EditarLinea)
			comp.DELETE("/:id/lineas/:idx", composicionesH.QuitarLinea)
			comp.PUT("/:id/descartes", composicionesH.FijarDescartes)
			comp.POST("/:id/confirmar", composicionesH.Confirmar)
			comp.DELETE("/:id", composicionesH.Cancelar)
		}

		lotes := v1.Group("/lotes")
		{
			lotes.GET("", todos, lotesH.Listar)
			lotes.GET("/:codigo", todos, lotesH.Obtener)
			lotes.POST("/:codigo/reabrir", supervision, lotesH.Reabrir)
			lotes.GET("/:codigo/reporte", todos, lotesH.Reporte)
			lotes.GET("/:codigo/etiquetas/:linea", todos, lotesH.Etiqueta)
			lotes.POST("/:codigo/analisis", todos, lotesH.SolicitarAnalisis)
			lotes.GET("/:codigo/analisis", todos, lotesH.ObtenerAnalisis)
		}

		v1.GET("/folios/abiertos", todos, despachosH.FoliosAbiertos)
		v1.POST("/despachos", supervision, despachosH.Registrar)

		admin := v1.Group("/admin", middleware.RequireRole(middleware.RolAdministrador))
		{
			admin.POST("/dlq/:cola/reintentar", handler.ReintentarDLQ(rdb))
		}
	}

	// Swagger UI: only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
