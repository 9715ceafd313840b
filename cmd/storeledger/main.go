package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/storeledger/cmd/storeledger/cli"
	"github.com/odyssey-erp/storeledger/internal/app"
	"github.com/odyssey-erp/storeledger/internal/audit"
	audithttp "github.com/odyssey-erp/storeledger/internal/audit/http"
	"github.com/odyssey-erp/storeledger/internal/auth"
	"github.com/odyssey-erp/storeledger/internal/inventory"
	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/masterdata"
	"github.com/odyssey-erp/storeledger/internal/observability"
	"github.com/odyssey-erp/storeledger/internal/platform/cache"
	"github.com/odyssey-erp/storeledger/internal/platform/db"
	"github.com/odyssey-erp/storeledger/internal/rbac"
	"github.com/odyssey-erp/storeledger/internal/reports"
	reporthttp "github.com/odyssey-erp/storeledger/internal/reports/http"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
	"github.com/odyssey-erp/storeledger/jobs"
	"github.com/odyssey-erp/storeledger/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		code := jobsCLI.Run(ctx, os.Args[2:], os.Stdout, os.Stderr)
		_ = jobsCLI.Close()
		os.Exit(code)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		os.Exit(cli.NewMigrateCLI(cfg.PGDSN).Run(os.Args[2:], os.Stdout, os.Stderr))
	}

	logger := app.NewLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("load report timezone", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, "storeledger_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	ledgerRepo := ledger.NewRepository(dbpool)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportCache.OnLookup(metrics.CacheLookup)
	reportService := reports.NewService(ledgerRepo, reportCache, loc, logger)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore, logger, inventory.ServiceConfig{
		Location:    loc,
		Invalidator: reportService,
		Metrics:     metrics,
	})
	inventoryHandler := inventory.NewHandler(logger, inventoryService, ledgerRepo, templates, csrfManager)

	masterService := masterdata.NewService(masterdata.NewRepository(dbpool), auditLogger, reportService, logger)
	masterHandler := masterdata.NewHandler(logger, masterService, templates, csrfManager)

	rbacService := rbac.NewService(dbpool)
	guard := rbac.NewGuard(rbacService, tokens, rbac.DefaultRules, logger)
	permissionsHandler := rbac.NewPermissionsHandler(logger, templates, csrfManager)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := reporthttp.NewHandler(logger, reportService, templates, pdfClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger).WithEnqueuer(jobClient)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), templates)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Guard:              guard,
		AuthHandler:        authHandler,
		ReportHandler:      reportHandler,
		InventoryHandler:   inventoryHandler,
		MasterDataHandler:  masterHandler,
		PermissionsHandler: permissionsHandler,
		JobHandler:         jobHandler,
		AuditHandler:       auditHandler,
		PDFHealth:          report.NewHandler(pdfClient, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
