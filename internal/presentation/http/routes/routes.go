package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sangkips/pdv-engine/internal/config"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/internal/presentation/http/handler"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pdv-engine/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Session  *handler.SessionHandler
	Cart     *handler.CartHandler
	HeldCart *handler.HeldCartHandler
	Payment  *handler.PaymentHandler
	Sale     *handler.SaleHandler
	Printer  *handler.PrinterHandler
	Product  *handler.ProductHandler
	Customer *handler.CustomerHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.TerminalRateLimiter
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTManager))
	{
		registerTerminalRoutes(v1, h, deps)
		registerSaleRoutes(v1, h)
		registerDeviceRoutes(v1, h)
		registerCatalogRoutes(v1, h)
	}

	return router
}

func registerTerminalRoutes(v1 *gin.RouterGroup, h *Handlers, deps *Deps) {
	v1.GET("/terminals", middleware.RequireRole(utils.RoleSupervisor), h.Session.List)

	terminal := v1.Group("/terminals/:terminal")
	terminal.Use(middleware.TerminalMiddleware())
	if deps.RateLimiter != nil {
		terminal.Use(deps.RateLimiter.Middleware())
	}

	session := terminal.Group("/session")
	{
		session.POST("", h.Session.Open)
		session.GET("", h.Session.Get)
		session.GET("/summary", h.Session.Summary)
		session.POST("/report", h.Session.PrintReport)
		session.POST("/close", h.Session.Close)
	}

	drawer := terminal.Group("/drawer")
	{
		drawer.GET("", h.Session.Drawer)
		drawer.POST("/deposits", h.Session.Deposit)
		drawer.POST("/withdrawals", h.Session.Withdraw)
	}

	cart := terminal.Group("/cart")
	{
		cart.GET("", h.Cart.Get)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:line", h.Cart.SetQuantity)
		cart.DELETE("/items/:line", h.Cart.RemoveItem)
		cart.PUT("/customer", h.Cart.SetCustomer)
		cart.PUT("/notes", h.Cart.SetNotes)
		cart.POST("/discounts", h.Cart.AddDiscount)
		cart.DELETE("/discounts/:discount", h.Cart.RemoveDiscount)
		cart.GET("/promotions", h.Cart.Promotions)
		cart.POST("/promotions/:promotion", h.Cart.ApplyPromotion)
	}

	held := terminal.Group("/held-carts")
	{
		held.GET("", h.HeldCart.List)
		held.GET("/unsaved", h.HeldCart.Unsaved)
		held.POST("", h.HeldCart.Hold)
		held.POST("/:held/recover", h.HeldCart.Recover)
		held.DELETE("/:held", h.HeldCart.Discard)
	}

	payment := terminal.Group("/payment")
	{
		payment.POST("", h.Payment.Open)
		payment.GET("", h.Payment.Get)
		payment.PUT("/method", h.Payment.SelectMethod)
		payment.PUT("/details", h.Payment.UpdateDetails)
		payment.POST("/cancel", h.Payment.Cancel)
		if deps.IdempotencyRepo != nil {
			payment.POST("/confirm", middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}), h.Payment.Confirm)
		} else {
			payment.POST("/confirm", h.Payment.Confirm)
		}
	}
}

func registerSaleRoutes(v1 *gin.RouterGroup, h *Handlers) {
	sales := v1.Group("/sales")
	{
		sales.GET("", h.Sale.List)
		sales.GET("/pending", h.Sale.Pending)
		sales.POST("/pending/retry", middleware.RequireRole(utils.RoleSupervisor), h.Sale.RetryPending)
		sales.GET("/:id", h.Sale.Get)
		sales.POST("/:id/receipt", h.Sale.PrintReceipt)
		sales.GET("/:id/fiscal", h.Sale.Fiscal)
		sales.POST("/:id/fiscal", h.Sale.EmitFiscal)
		sales.POST("/:id/fiscal/retry", h.Sale.RetryFiscal)
	}
}

func registerDeviceRoutes(v1 *gin.RouterGroup, h *Handlers) {
	v1.GET("/printers", h.Printer.GetStatus)
	v1.POST("/printers/:device/test", h.Printer.TestPrint)

	jobs := v1.Group("/print-jobs")
	{
		jobs.GET("", h.Printer.Jobs)
		jobs.GET("/stream", h.Printer.Stream)
		jobs.GET("/:id", h.Printer.GetJob)
		jobs.POST("/:id/retry", h.Printer.RetryJob)
	}

	v1.GET("/tef/status", h.Payment.TEFStatus)
}

func registerCatalogRoutes(v1 *gin.RouterGroup, h *Handlers) {
	v1.GET("/products", h.Product.Search)
	v1.GET("/products/code/:code", h.Product.GetByCode)
	v1.GET("/customers/document/:document", h.Customer.GetByDocument)
}
