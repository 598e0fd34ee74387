// Package audit keeps an append-only booking history in MongoDB.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/pkg/config"
)

const historyCollection = "booking_history"

// historyDocument is one booking_history entry.
type historyDocument struct {
	BookingID     string    `bson:"booking_id"`
	BookingNumber string    `bson:"booking_number"`
	UserID        string    `bson:"user_id"`
	ActorID       string    `bson:"actor_id,omitempty"`
	Kind          string    `bson:"kind"`
	Action        string    `bson:"action"`
	FromStatus    string    `bson:"from_status,omitempty"`
	ToStatus      string    `bson:"to_status"`
	TotalAmount   int64     `bson:"total_amount"`
	Currency      string    `bson:"currency"`
	OccurredAt    time.Time `bson:"occurred_at"`
}

// MongoRecorder writes audit entries to the booking_history collection.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoRecorder connects to MongoDB, verifies the connection and ensures
// the history indexes exist.
func NewMongoRecorder(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*MongoRecorder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(historyCollection)
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		logger.Warn("failed to create booking history indexes", zap.Error(err))
	}

	logger.Info("connected to mongo", zap.String("database", cfg.Database))
	return &MongoRecorder{client: client, collection: collection, logger: logger}, nil
}

var (
	_ application.AuditRecorder  = (*MongoRecorder)(nil)
	_ application.BookingHistory = (*MongoRecorder)(nil)
)

// Record inserts one history entry.
func (r *MongoRecorder) Record(ctx context.Context, entry application.AuditEntry) error {
	if _, err := r.collection.InsertOne(ctx, toHistoryDocument(entry)); err != nil {
		return fmt.Errorf("failed to record booking history: %w", err)
	}
	return nil
}

// History returns a booking's entries in the order they happened.
func (r *MongoRecorder) History(ctx context.Context, bookingID uuid.UUID) ([]application.AuditEntry, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"booking_id": bookingID.String()},
		options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode booking history: %w", err)
	}

	entries := make([]application.AuditEntry, 0, len(docs))
	for _, d := range docs {
		entry, err := fromHistoryDocument(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close disconnects the client.
func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toHistoryDocument(e application.AuditEntry) historyDocument {
	doc := historyDocument{
		BookingID:     e.BookingID.String(),
		BookingNumber: e.BookingNumber,
		UserID:        e.UserID.String(),
		Kind:          e.Kind,
		Action:        string(e.Action),
		FromStatus:    e.FromStatus,
		ToStatus:      e.ToStatus,
		TotalAmount:   e.TotalAmount,
		Currency:      e.Currency,
		OccurredAt:    e.OccurredAt.UTC(),
	}
	if e.ActorID != nil {
		doc.ActorID = e.ActorID.String()
	}
	return doc
}
