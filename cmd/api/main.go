package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/config"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/internal/infrastructure/cache"
	"github.com/sangkips/pdv-engine/internal/infrastructure/database"
	"github.com/sangkips/pdv-engine/internal/infrastructure/repository"
	"github.com/sangkips/pdv-engine/internal/pkg/telemetry"
	"github.com/sangkips/pdv-engine/internal/presentation/http/handler"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pdv-engine/internal/presentation/http/routes"
	"github.com/sangkips/pdv-engine/pkg/fiscal"
	"github.com/sangkips/pdv-engine/pkg/tef"
	"github.com/sangkips/pdv-engine/pkg/utils"
)

const (
	pendingSaleRetryInterval = 30 * time.Second
	idempotencyCleanupTick   = time.Hour
	shutdownTimeout          = 15 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()
	telemetry.InitLogger(cfg.App.LogLevel)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		fatal("failed to run migrations", err)
	}
	if cfg.Database.SeedDemo {
		if err := database.SeedDemoCatalog(db); err != nil {
			slog.Warn("failed to seed demo catalog", "error", err)
		}
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		fatal("failed to connect to redis", err)
	}
	defer redisClient.Close()

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewCashMovementRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	heldCartRepo := repository.NewHeldCartRepository(redisClient, cfg.Redis.HeldCartTTL)

	// Devices
	fiscalClient, err := fiscal.NewClientFromConfig(cfg.Fiscal.Type, cfg.Fiscal.BaseURL, cfg.Fiscal.Token, cfg.Fiscal.Timeout)
	if err != nil {
		fatal("failed to initialize fiscal client", err)
	}
	terminal, err := tef.NewTerminalFromConfig(cfg.TEF.Type, cfg.TEF.BaseURL, cfg.TEF.Timeout)
	if err != nil {
		fatal("failed to initialize card terminal", err)
	}
	devices, err := service.BuildPrintDevices(&cfg.Printer)
	if err != nil {
		fatal("failed to initialize printers", err)
	}

	// Initialize services
	saleService := service.NewSaleService(saleRepo)
	printQueue, err := service.NewPrintQueue(devices, service.PrintQueueOptions{
		Timeout: cfg.Printer.Timeout,
		Width:   cfg.Printer.Width,
		Header: entity.ReceiptHeader{
			StoreName: cfg.Store.Name,
			Address:   cfg.Store.Address,
			Phone:     cfg.Store.Phone,
			TaxID:     cfg.Store.TaxID,
		},
		Sales: saleService,
	})
	if err != nil {
		fatal("failed to initialize print queue", err)
	}
	fiscalService := service.NewFiscalService(fiscalClient, saleService, printQueue, cfg.Fiscal.Timeout)
	defer fiscalService.Close()

	pricingService := service.NewPricingService(cfg.POS.TaxRate, promotionRepo)
	sessionService := service.NewSessionService(cfg.POS.MaxQuantity, movementRepo, cfg.Cash.SupervisorPINHash, printQueue)
	cartService := service.NewCartService(productRepo, customerRepo, pricingService)
	heldCartService := service.NewHeldCartService(heldCartRepo)
	catalogService := service.NewCatalogService(productRepo, customerRepo)
	paymentService := service.NewPaymentService(pricingService, terminal, saleService, fiscalService, printQueue, service.PaymentConfig{
		MaxInstallments:    cfg.POS.MaxInstallments,
		InstallmentMinimum: cfg.POS.InstallmentMinimum,
		DefaultDocType:     entity.DocumentType(cfg.POS.DefaultDocType),
	})

	go saleService.Run(ctx, pendingSaleRetryInterval)
	go cleanIdempotencyKeys(ctx, idempotencyRepo)

	rateLimiter := middleware.NewTerminalRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: float64(cfg.RateLimit.Requests) / float64(max(cfg.RateLimit.Duration, 1)),
		BurstSize:         cfg.RateLimit.Requests,
	})
	defer rateLimiter.Stop()

	// Initialize handlers
	handlers := &routes.Handlers{
		Session:  handler.NewSessionHandler(sessionService),
		Cart:     handler.NewCartHandler(sessionService, cartService),
		HeldCart: handler.NewHeldCartHandler(sessionService, heldCartService, cartService),
		Payment:  handler.NewPaymentHandler(sessionService, paymentService, terminal),
		Sale:     handler.NewSaleHandler(saleService, fiscalService, printQueue),
		Printer:  handler.NewPrinterHandler(printQueue),
		Product:  handler.NewProductHandler(catalogService),
		Customer: handler.NewCustomerHandler(catalogService),
	}

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "service", cfg.App.Name, "port", port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Give in-flight sale writes a last chance before exiting.
	saleService.RetryPending(shutdownCtx)
	waitOrTimeout(shutdownCtx, saleService.Wait)
	if pending := saleService.Pending(); len(pending) > 0 {
		slog.Error("exiting with unrecorded sales", "count", len(pending))
	}
	waitOrTimeout(shutdownCtx, printQueue.Wait)
}

func cleanIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository) {
	ticker := time.NewTicker(idempotencyCleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				slog.WarnContext(ctx, "failed to delete expired idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "expired idempotency keys deleted", "count", n)
			}
		}
	}
}

func waitOrTimeout(ctx context.Context, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
