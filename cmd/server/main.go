package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/service"
	"github.com/httplouis/travelink-workflow/internal/config"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/repository"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/worker"
	httpserver "github.com/httplouis/travelink-workflow/internal/interfaces/http"
	"github.com/httplouis/travelink-workflow/internal/workflow"
	"github.com/httplouis/travelink-workflow/pkg/database"
	"github.com/httplouis/travelink-workflow/pkg/utils"
)

func main() {
	// Local overrides from .env, ignored when absent
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Travelink Workflow Engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Transaction-aware database wrapper shared by the repositories
	txDB := sqlite.NewDB(db.DB, logger)

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(txDB, logger)
	historyRepo := repository.NewHistoryRepository(txDB, logger)
	notificationRepo := repository.NewNotificationRepository(txDB, logger)
	departmentRepo := repository.NewDepartmentRepository(txDB, logger)
	userRepo := repository.NewUserRepository(txDB, logger)
	quotaRepo := repository.NewVehicleQuotaRepository(txDB, logger)

	// Initialize workflow engine
	engine := workflow.NewSmartEngine(workflow.SmartConfig{
		HRBudgetThreshold:       decimal.NewFromFloat(cfg.Workflow.HRBudgetThreshold),
		ExecBudgetThreshold:     decimal.NewFromFloat(cfg.Workflow.ExecBudgetThreshold),
		AllowAdminAsComptroller: cfg.Workflow.AllowAdminAsComptroller,
		TimeSavedPerSkipDays:    cfg.Workflow.TimeSavedPerSkipDays,
	})

	// Initialize application services
	sugared := &sugaredLogger{sugar: logger.Sugar()}
	requestService := service.NewRequestService(
		engine,
		requestRepo,
		departmentRepo,
		userRepo,
		historyRepo,
		notificationRepo,
		quotaRepo,
		txDB,
		cfg.Workflow.VehicleDailyQuota,
		sugared,
	)
	notificationService := service.NewNotificationService(notificationRepo, sugared)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requestService, notificationService, sugared)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background notification delivery
	dispatcher := worker.NewDispatcher(notificationRepo, &worker.LogSender{Logger: logger}, logger)
	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}
	defer dispatcher.Stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

// sugaredLogger adapts zap's sugared logger to the narrow logging
// interface the application layer depends on
type sugaredLogger struct {
	sugar *zap.SugaredLogger
}

func (l *sugaredLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *sugaredLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
