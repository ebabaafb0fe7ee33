package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	deliveryHTTP "github.com/frontandrew/parklane/internal/delivery/http"
	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/camera"
	"github.com/frontandrew/parklane/internal/infrastructure/lease"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/config"
	"github.com/frontandrew/parklane/internal/pkg/credential"
	"github.com/frontandrew/parklane/internal/pkg/database"
	"github.com/frontandrew/parklane/internal/pkg/logger"
	"github.com/frontandrew/parklane/internal/pkg/redis"
	"github.com/frontandrew/parklane/internal/repository"
	"github.com/frontandrew/parklane/internal/repository/postgres"
	"github.com/frontandrew/parklane/internal/usecase/booking"
	"github.com/frontandrew/parklane/internal/usecase/receipt"
	"github.com/frontandrew/parklane/internal/usecase/settlement"
	"github.com/frontandrew/parklane/internal/usecase/workflow"
)

// journalRecorder пишет события журнала best-effort: ошибка записи
// логируется и не останавливает рабочий процесс
type journalRecorder struct {
	repo repository.JournalRepository
	log  logger.Logger
}

func (j *journalRecorder) Record(ctx context.Context, entry *domain.JournalEntry) {
	if err := j.repo.Append(ctx, entry); err != nil {
		j.log.Warn("journal append failed", map[string]interface{}{
			"event": string(entry.EventType),
			"error": err.Error(),
		})
	}
}

func main() {
	// =========================================================================
	// Загрузка конфигурации
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Инициализация logger
	// =========================================================================

	log := logger.New(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.Output)
	log.Info("Starting lane terminal", map[string]interface{}{
		"direction": cfg.Terminal.Direction,
		"operator":  cfg.Terminal.Operator,
	})

	direction := domain.GateID(cfg.Terminal.Direction)

	// =========================================================================
	// Клиент парковочного бэкенда
	// =========================================================================

	cred := credential.New(cfg.Backend.Token)
	if err := cred.Check(time.Now()); err != nil {
		log.Fatal("Backend credential rejected", map[string]interface{}{
			"error": err.Error(),
		})
	}

	client := parking.NewHTTPClient(cfg.Backend.BaseURL, cred)

	ctx := context.Background()
	if _, err := client.GateStatus(ctx); err != nil {
		log.Warn("Parking backend is not reachable", map[string]interface{}{
			"url":   cfg.Backend.BaseURL,
			"error": err.Error(),
		})
		log.Warn("Detection and payments will fail until the backend is up")
	} else {
		log.Info("Parking backend is healthy", map[string]interface{}{
			"url": cfg.Backend.BaseURL,
		})
	}

	// =========================================================================
	// Локальный журнал (опционально)
	// =========================================================================

	var journalRepo repository.JournalRepository
	var journal workflow.JournalRecorder

	if cfg.Database.Enabled {
		db, err := database.Connect(ctx, &cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer database.Close(db)

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal("Failed to prepare journal schema", map[string]interface{}{
				"error": err.Error(),
			})
		}

		journalRepo = postgres.NewJournalRepository(db)
		journal = &journalRecorder{repo: journalRepo, log: log}

		log.Info("Connected to PostgreSQL", map[string]interface{}{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Database,
		})
	} else {
		log.Info("Local journal is disabled")
	}

	// =========================================================================
	// Аренда камеры через Redis (опционально)
	// =========================================================================

	var cameraLease workflow.Lease

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer redisClient.Close()

		holder := cfg.Terminal.Direction + ":" + cfg.Terminal.Operator
		cameraLease = lease.New(redisClient, log, cfg.Camera.Name, holder, cfg.Camera.LeaseTTL)

		log.Info("Camera lease enabled", map[string]interface{}{
			"camera": cfg.Camera.Name,
			"holder": holder,
		})
	} else {
		log.Info("Camera lease is disabled, assuming exclusive camera access")
	}

	// =========================================================================
	// Источник видео
	// =========================================================================

	opener := camera.NewStreamOpener(cfg.Camera.StreamURL, func(ctx context.Context) (string, error) {
		settings, err := client.CameraSettings(ctx)
		if err != nil {
			return "", err
		}
		if direction == domain.GateExit {
			return settings.ExitDevice, nil
		}
		return settings.EntryDevice, nil
	}, log)

	// =========================================================================
	// Печать квитанций
	// =========================================================================

	var printer receipt.Printer
	if cfg.Receipt.SpoolDir != "" {
		spool, err := receipt.NewFileSpool(cfg.Receipt.SpoolDir)
		if err != nil {
			log.Fatal("Failed to prepare receipt spool", map[string]interface{}{
				"error": err.Error(),
			})
		}
		printer = spool
		log.Info("Receipt spool ready", map[string]interface{}{
			"dir": cfg.Receipt.SpoolDir,
		})
	} else {
		log.Info("Receipt printing is disabled")
	}

	receipts := receipt.NewEmitter(printer, cfg.Receipt.QRSize, log)

	// =========================================================================
	// Use case services
	// =========================================================================

	bookingService := booking.NewService(client, log)
	settlementService := settlement.NewService(client, cfg.Terminal.Operator, log)

	terminal := workflow.NewTerminal(
		workflow.TerminalConfig{
			Direction:   direction,
			Operator:    cfg.Terminal.Operator,
			BookingMode: cfg.Terminal.BookingMode,
			Sampler: workflow.SamplerConfig{
				CameraName:     cfg.Camera.Name,
				Interval:       cfg.Camera.SampleInterval,
				CaptureTimeout: cfg.Backend.CaptureTimeout(cfg.Terminal.Direction),
				MaxWidth:       cfg.Camera.MaxWidth,
				MaxHeight:      cfg.Camera.MaxHeight,
				JPEGQuality:    cfg.Camera.JPEGQuality,
			},
			ReadyFallback:  cfg.Camera.ReadyFallback,
			AutoCloseDelay: cfg.Gate.AutoCloseDelay,
			ResetDelay:     cfg.Gate.ResetDelay,
			RequestTimeout: cfg.Backend.RequestTimeout,
		},
		client,
		bookingService,
		settlementService,
		receipts,
		journal,
		opener,
		cameraLease,
		log,
	)

	log.Info("Workflow services initialized")

	// =========================================================================
	// HTTP router и сервер
	// =========================================================================

	router := deliveryHTTP.NewRouter(
		deliveryHTTP.NewTerminalHandler(terminal, bookingService, settlementService, log),
		deliveryHTTP.NewGateHandler(client, log),
		deliveryHTTP.NewJournalHandler(journalRepo, log),
		cfg,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Terminal control server listening", map[string]interface{}{
			"address": srv.Addr,
		})
		serverErrors <- srv.ListenAndServe()
	}()

	// =========================================================================
	// Graceful shutdown
	// =========================================================================

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatal("Server error", map[string]interface{}{
			"error": err.Error(),
		})

	case sig := <-shutdown:
		log.Info("Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})

		// Сначала останавливается рабочий процесс: сэмплер, источник,
		// аренда камеры. Потом закрывается HTTP сервер.
		terminal.Teardown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
			_ = srv.Close()
		}

		log.Info("Terminal stopped")
	}
}
