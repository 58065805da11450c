package router

import (
	"time"

	"puntoventa/internal/config"
	"puntoventa/internal/handler"
	"puntoventa/internal/infra"
	"puntoventa/internal/middleware"
	"puntoventa/internal/repository"
	"puntoventa/internal/service"
	"puntoventa/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// mailer may be nil; /health then omits the SMTP breaker state.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.OrigenesCORS()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMin, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	uow := repository.NewUnitOfWork(db)
	productoRepo := repository.NewProductoRepository(db)
	inventarioRepo := repository.NewInventarioRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)

	// Post-commit jobs go to the Redis queues consumed by the worker pool.
	var dispatcher service.JobDispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	ledger := service.NewStockLedger(uow, productoRepo, inventarioRepo, movimientoStockRepo, dispatcher)
	cajaSvc := service.NewCajaService(uow, cajaRepo, dispatcher)
	pedidoSvc := service.NewPedidoService(uow, pedidoRepo, ledger, cajaSvc)
	productoSvc := service.NewProductoService(uow, productoRepo, inventarioRepo, categoriaRepo, ledger, rdb, cfg.PrecioCacheTTL)
	categoriaSvc := service.NewCategoriaService(categoriaRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc)
	pedidosH := handler.NewPedidosHandler(pedidoSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	inventarioH := handler.NewInventarioHandler(ledger)
	categoriasH := handler.NewCategoriasHandler(categoriaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailer))

	// Protected routes; every resource is scoped to the token's user_id.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/cerrar", cajaH.Cerrar)
			caja.GET("/actual", cajaH.Actual)
			caja.GET("/historial", cajaH.Historial)
			caja.GET("/:id", cajaH.ObtenerSesion)
			caja.POST("/:id/movimientos", cajaH.RegistrarMovimiento)
			caja.GET("/:id/movimientos", cajaH.ListarMovimientos)
			caja.GET("/:id/transacciones-efectivo", cajaH.TransaccionesEfectivo)
			caja.GET("/:id/reporte.pdf", cajaH.ReportePDF)
		}

		pedidos := v1.Group("/pedidos")
		{
			pedidos.POST("", pedidosH.Crear)
			pedidos.GET("", pedidosH.Listar)
			pedidos.GET("/:id", pedidosH.Obtener)
			pedidos.DELETE("/:id", pedidosH.Eliminar)
		}

		prods := v1.Group("/productos")
		{
			prods.POST("", productosH.Crear)
			prods.GET("", productosH.Listar)
			prods.GET("/:id", productosH.Obtener)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Eliminar)
		}

		inv := v1.Group("/inventario")
		{
			inv.GET("/alertas", inventarioH.Alertas)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
			inv.GET("/:producto_id", inventarioH.Obtener)
			inv.PUT("/:producto_id", inventarioH.Ajustar)
		}

		categorias := v1.Group("/categorias")
		{
			categorias.POST("", categoriasH.Crear)
			categorias.GET("", categoriasH.Listar)
			categorias.PUT("/:id", categoriasH.Actualizar)
			categorias.DELETE("/:id", categoriasH.Desactivar)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
