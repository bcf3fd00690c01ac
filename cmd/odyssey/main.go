package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/clients"
	"github.com/odyssey-erp/odyssey-pos/internal/employees"
	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
	"github.com/odyssey-erp/odyssey-pos/internal/invoicedoc"
	"github.com/odyssey-erp/odyssey-pos/internal/invoices"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/products"
	"github.com/odyssey-erp/odyssey-pos/internal/purchases"
	"github.com/odyssey-erp/odyssey-pos/internal/registers"
	"github.com/odyssey-erp/odyssey-pos/internal/suppliers"
	"github.com/odyssey-erp/odyssey-pos/jobs"
	"github.com/odyssey-erp/odyssey-pos/report"
)

const usage = `usage: odyssey [command]

commands:
  serve                  run the HTTP API (default)
  migrate [up|down N|version]
  jobs trigger <name>    enqueue fx:refresh or idempotency:cleanup
  jobs stats             show default queue depth
  fx [--json] [monto]    query the BCV rate API directly`

func main() {
	if app.SkipRuntime("odyssey") {
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "migrate":
		err = cli.RunMigrate(cfg.PGDSN, args, os.Stdout)
	case "jobs":
		err = runJobs(ctx, cfg, args)
	case "fx":
		err = runFX(ctx, cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	clientService := clients.NewService(clients.NewRepository(dbpool))
	productService := products.NewService(products.NewRepository(dbpool), logger)
	invoiceService := invoices.NewService(invoices.NewRepository(dbpool), logger,
		decimal.NewFromFloat(cfg.TaxRate), metrics)

	fxService := fxrates.NewService(
		fxrates.NewClient(cfg.FXAPIURL, cfg.FXTimeout),
		cache.NewStore(redisClient, cfg.FXCacheTTL),
		decimal.NewFromFloat(cfg.FXDefaultRate),
		logger,
	).WithRecorder(metrics)

	reportClient := report.NewClient(cfg.GotenbergURL)
	renderer, err := invoicedoc.NewRenderer(reportClient)
	if err != nil {
		return err
	}
	builder := invoicedoc.NewBuilder(invoiceService, clientService, fxService, invoicedoc.Company{
		Name:    cfg.CompanyName,
		RIF:     cfg.CompanyRIF,
		Address: cfg.CompanyAddress,
	})
	documents := invoicedoc.NewService(builder, renderer, logger)

	employeeService := employees.NewService(employees.NewRepository(dbpool))
	supplierService := suppliers.NewService(suppliers.NewRepository(dbpool))
	purchaseService := purchases.NewService(purchases.NewRepository(dbpool), logger)
	registerService := registers.NewService(registers.NewRepository(dbpool), employeeService, logger)
	terminalLocks := registers.NewTerminalLocks(redisClient, cfg.TerminalLockTTL)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpt)
	if err != nil {
		return err
	}
	defer jobClient.Close()
	if _, err := jobClient.EnqueueFXRefresh(ctx); err != nil {
		logger.Warn("enqueue fx warmup", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Ready: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
		ClientsHandler:   clients.NewHandler(logger, clientService),
		ProductsHandler:  products.NewHandler(logger, productService),
		InvoicesHandler:  invoices.NewHandler(logger, invoiceService, documents),
		FXHandler:        fxrates.NewHandler(fxService),
		EmployeesHandler: employees.NewHandler(employeeService),
		SuppliersHandler: suppliers.NewHandler(supplierService),
		PurchasesHandler: purchases.NewHandler(logger, purchaseService),
		RegistersHandler: registers.NewHandler(logger, registerService, terminalLocks),
		ReportHandler:    report.NewHandler(reportClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
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
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jc.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: job name required")
		}
		info, err := jc.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	case "stats":
		stats, err := jc.InspectQueue(ctx)
		if err != nil {
			return err
		}
		cli.WriteStats(os.Stdout, stats)
	default:
		return fmt.Errorf("jobs: unknown command %q", args[0])
	}
	return nil
}

func runFX(ctx context.Context, cfg *app.Config, args []string) error {
	opts := cli.FXShowOptions{Stdout: os.Stdout}
	for _, a := range args {
		if a == "--json" {
			opts.JSONOutput = true
			continue
		}
		opts.Amount = a
	}
	return cli.NewFXCLI(fxrates.NewClient(cfg.FXAPIURL, cfg.FXTimeout)).Show(ctx, opts)
}
