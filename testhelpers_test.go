//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/travel-golobe/service-booking/internal/application"
	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	bookingEvents "github.com/travel-golobe/service-booking/internal/events"
	"github.com/travel-golobe/service-booking/internal/notification"
	"github.com/travel-golobe/service-booking/internal/repository"
	"github.com/travel-golobe/service-booking/pkg/events"
	"github.com/travel-golobe/service-booking/pkg/kafka"
	"github.com/travel-golobe/service-booking/pkg/metrics"
)

// setupPostgres starts a PostgreSQL testcontainer and returns a migrated GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(repository.Models()...))
	return db
}

// setupKafka starts a Kafka testcontainer and pre-creates the booking topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicBookingEvents, events.TopicBookingCommands, events.TopicNotificationCommands)
	return brokers
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Service *application.BookingService
	Sweeper *application.ExpirationSweeper
}

// setupBookingStack wires the booking service and sweeper on Postgres.
// publisher may be nil.
func setupBookingStack(t *testing.T, db *gorm.DB, publisher application.EventPublisher) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	m := metrics.NewBookingMetrics(prometheus.NewRegistry(), "booking")
	tx := repository.NewGormTxManager(db)
	bookings := repository.NewGormBookingRepository(db)

	svc := application.NewBookingService(application.BookingDeps{
		Tx:        tx,
		Bookings:  bookings,
		Invoices:  repository.NewGormInvoiceRepository(db),
		Catalog:   repository.NewGormCatalog(db),
		Pricing:   bookingDomain.NewCalculator(bookingDomain.NewHolidayCalendar(time.UTC)),
		Users:     repository.NewGormUserDirectory(db),
		Notifier:  notification.NewLogNotifier(logger),
		Publisher: publisher,
		Metrics:   m,
	}, application.DefaultBookingOptions(), logger)
	t.Cleanup(svc.Drain)

	sweeper := application.NewExpirationSweeper(tx, bookings, publisher, nil, m, application.SweeperOptions{
		TTL:       24 * time.Hour,
		BatchSize: 100,
	}, logger)

	return &bookingStack{Service: svc, Sweeper: sweeper}
}

// setupSweepConsumer starts a sweep command consumer until the test ends.
func setupSweepConsumer(t *testing.T, brokers []string, sweeper bookingEvents.Sweeper) {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewSweepCommandConsumer(brokers, groupID, sweeper, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = consumer.Close()
	})
	go func() { _ = consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.
}

func seedUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.UserModel{
		ID:        id,
		Name:      "Minh Nguyen",
		Email:     fmt.Sprintf("minh-%s@example.com", id.String()[:8]),
		CreatedAt: time.Now().UTC(),
	}).Error)
	return id
}

func seedFlight(t *testing.T, db *gorm.DB, priceCents int64, seats int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.FlightModel{
		ID:             id,
		Code:           "VN" + id.String()[:4],
		Origin:         "SGN",
		Destination:    "HAN",
		DepartureAt:    time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		PriceCents:     priceCents,
		TotalSeats:     seats,
		RemainingSeats: seats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)
	return id
}

func seedHotel(t *testing.T, db *gorm.DB, pricePerDayCents int64, totalRooms, remainingRooms int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.HotelModel{
		ID:             id,
		Name:           "Saigon Riverside",
		City:           "Ho Chi Minh City",
		TotalRooms:     totalRooms,
		RemainingRooms: remainingRooms,
		Rooms: []repository.RoomModel{{
			ID:               uuid.New(),
			Type:             "standard",
			PricePerDayCents: pricePerDayCents,
			Available:        true,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	return id
}

func seedTour(t *testing.T, db *gorm.DB, priceCents int64, slots int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.TourModel{
		ID:              id,
		Name:            "Ha Long Bay",
		Destination:     "Quang Ninh",
		StartDate:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		DurationDays:    2,
		AdultPriceCents: priceCents,
		TotalSlots:      slots,
		RemainingSlots:  slots,
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error)
	return id
}

func seedRoadVehicle(t *testing.T, db *gorm.DB, priceCents int64, seats int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.RoadVehicleModel{
		ID:             id,
		Name:           "Limousine 9",
		Route:          "Ha Noi - Sa Pa",
		PriceCents:     priceCents,
		TotalSeats:     seats,
		RemainingSeats: seats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)
	return id
}

// remaining reads a capacity counter straight from its table.
func remaining(t *testing.T, db *gorm.DB, table, column string, id uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.Table(table).Where("id = ?", id).Pluck(column, &n).Error)
	return n
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
