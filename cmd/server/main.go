package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/internal/audit"
	"github.com/travel-golobe/service-booking/internal/config"
	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/user"
	bookingEvents "github.com/travel-golobe/service-booking/internal/events"
	"github.com/travel-golobe/service-booking/internal/handler"
	"github.com/travel-golobe/service-booking/internal/notification"
	"github.com/travel-golobe/service-booking/internal/repository"
	"github.com/travel-golobe/service-booking/internal/repository/memory"
	"github.com/travel-golobe/service-booking/pkg/auth"
	"github.com/travel-golobe/service-booking/pkg/database"
	"github.com/travel-golobe/service-booking/pkg/health"
	"github.com/travel-golobe/service-booking/pkg/kafka"
	"github.com/travel-golobe/service-booking/pkg/logger"
	"github.com/travel-golobe/service-booking/pkg/metrics"
	"github.com/travel-golobe/service-booking/pkg/middleware"
)

// storage groups the persistence collaborators chosen by BOOKING_STORE_DRIVER.
type storage struct {
	db       *gorm.DB
	tx       bookingDomain.TxManager
	bookings bookingDomain.BookingRepository
	invoices bookingDomain.InvoiceRepository
	catalog  catalog.Catalog
	users    user.Directory
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("notifier", cfg.NotifierDriver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := openStorage(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize pricing
	holidays, err := bookingDomain.ParseHolidayCalendar(cfg.Booking.Location, cfg.Booking.Holidays)
	if err != nil {
		log.Fatal("failed to parse holiday calendar", zap.Error(err))
	}
	pricing := bookingDomain.NewCalculator(holidays)

	// Initialize notification channel
	notifier, err := newNotifier(ctx, cfg, kafkaProducer, log)
	if err != nil {
		log.Fatal("failed to initialize notifier", zap.Error(err))
	}

	// Initialize booking history
	var (
		recorder application.AuditRecorder
		history  application.BookingHistory
	)
	if cfg.MongoConfig.URI != "" {
		mongoRecorder, err := audit.NewMongoRecorder(ctx, cfg.MongoConfig, log)
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = mongoRecorder.Close(closeCtx)
		}()
		recorder = mongoRecorder
		history = mongoRecorder
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry, "booking")

	// Initialize application services
	bookingService := application.NewBookingService(application.BookingDeps{
		Tx:        store.tx,
		Bookings:  store.bookings,
		Invoices:  store.invoices,
		Catalog:   store.catalog,
		Pricing:   pricing,
		Users:     store.users,
		Notifier:  notifier,
		Audit:     recorder,
		Publisher: kafkaProducer,
		Metrics:   bookingMetrics,
	}, application.BookingOptions{
		Currency:          cfg.Booking.Currency,
		Location:          cfg.Booking.Location,
		ReleaseOnCancel:   cfg.Booking.ReleaseOnCancel,
		SideEffectTimeout: cfg.Booking.SideEffectTimeout,
	}, log)

	sweeper := application.NewExpirationSweeper(
		store.tx,
		store.bookings,
		kafkaProducer,
		recorder,
		bookingMetrics,
		application.SweeperOptions{
			TTL:              cfg.Sweeper.TTL,
			Interval:         cfg.Sweeper.Interval,
			IncludeConfirmed: cfg.Sweeper.IncludeConfirmed,
			PurgeAfter:       cfg.Sweeper.PurgeAfter,
			BatchSize:        cfg.Sweeper.BatchSize,
		},
		log,
	)
	go sweeper.Start(ctx)

	// Initialize and start sweep command consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	sweepConsumer := bookingEvents.NewSweepCommandConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		sweeper,
		log,
	)
	defer func() { _ = sweepConsumer.Close() }()

	go func() {
		log.Info("starting sweep command consumer")
		if err := sweepConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("sweep command consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("failed to register request validators", zap.Error(err))
	}
	bookingHandler := handler.NewBookingHandler(bookingService)
	adminBookingHandler := handler.NewAdminBookingHandler(bookingService, sweeper, history)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check and metrics routes
	healthHandler := health.NewHandler(store.db, "service-booking")
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stop the sweeper and the consumer
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	// Let in-flight notifications and audit writes finish
	bookingService.Drain()

	log.Info("service-booking stopped")
}

func openStorage(cfg *config.ServiceConfig, log *zap.Logger) (*storage, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &storage{
			tx:       store,
			bookings: store.Bookings(),
			invoices: store.Invoices(),
			catalog:  store,
			users:    store,
		}, nil
	}

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			return nil, fmt.Errorf("auto-migration failed: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			return nil, err
		}
	}

	return &storage{
		db:       db,
		tx:       repository.NewGormTxManager(db),
		bookings: repository.NewGormBookingRepository(db),
		invoices: repository.NewGormInvoiceRepository(db),
		catalog:  repository.NewGormCatalog(db),
		users:    repository.NewGormUserDirectory(db),
	}, nil
}

func newNotifier(ctx context.Context, cfg *config.ServiceConfig, producer *kafka.Producer, log *zap.Logger) (application.NotificationGateway, error) {
	switch cfg.NotifierDriver {
	case config.NotifierGmail:
		return notification.NewGmailNotifier(ctx, cfg.GmailConfig, cfg.Booking.Location, log)
	case config.NotifierLog:
		return notification.NewLogNotifier(log), nil
	default:
		return notification.NewKafkaNotifier(producer, log), nil
	}
}
