package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// MongoStore persists CrisisEvents to a dedicated collection, adapted from
// this module's append-only run-log store: writes are InsertOne-only,
// there is no update or delete path, and a duplicate id is treated as
// success rather than an error so a retried append is idempotent.
type MongoStore struct {
	events *mongo.Collection
}

// MongoStoreOptions configures a new MongoStore.
type MongoStoreOptions struct {
	Client   *mongo.Client
	Database string
}

// NewMongoStore constructs a MongoStore and ensures its indexes exist.
func NewMongoStore(ctx context.Context, opts MongoStoreOptions) (*MongoStore, error) {
	if opts.Client == nil {
		return nil, errors.New("audit: mongo client is required")
	}
	db := opts.Database
	if db == "" {
		db = "crisis_registry"
	}
	events := opts.Client.Database(db).Collection("crisis_events")
	if _, err := events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("audit: ensure indexes: %w", err)
	}
	return &MongoStore{events: events}, nil
}

type eventDoc struct {
	ID                       string    `bson:"id"`
	ConversationID           string    `bson:"conversation_id"`
	UserID                   string    `bson:"user_id"`
	MessageID                string    `bson:"message_id"`
	Region                   string    `bson:"region"`
	RiskLevel                string    `bson:"risk_level"`
	Patterns                 []string  `bson:"patterns"`
	ToolCallsMade            []string  `bson:"tool_calls_made"`
	ResourcesOffered         []string  `bson:"resources_offered"`
	AIFailureDetected        bool      `bson:"ai_failure_detected"`
	ModelDegradationDetected bool      `bson:"model_degradation_detected"`
	ConversationStopped      bool      `bson:"conversation_stopped"`
	FailureReason            string    `bson:"failure_reason"`
	Degraded                 bool      `bson:"degraded"`
	ReviewerStatus           string    `bson:"reviewer_status"`
	CreatedAt                time.Time `bson:"created_at"`
}

func toDoc(e *CrisisEvent) eventDoc {
	return eventDoc{
		ID:                       e.ID,
		ConversationID:           e.ConversationID,
		UserID:                   e.UserID,
		MessageID:                e.MessageID,
		Region:                   string(e.Region),
		RiskLevel:                string(e.RiskLevel),
		Patterns:                 e.Patterns,
		ToolCallsMade:            e.ToolCallsMade,
		ResourcesOffered:         e.ResourcesOffered,
		AIFailureDetected:        e.AIFailureDetected,
		ModelDegradationDetected: e.ModelDegradationDetected,
		ConversationStopped:      e.ConversationStopped,
		FailureReason:            e.FailureReason,
		Degraded:                 e.Degraded,
		ReviewerStatus:           string(e.ReviewerStatus),
		CreatedAt:                e.CreatedAt,
	}
}

func fromDoc(d eventDoc) *CrisisEvent {
	return &CrisisEvent{
		ID:                       d.ID,
		ConversationID:           d.ConversationID,
		UserID:                   d.UserID,
		MessageID:                d.MessageID,
		Region:                   domain.Region(d.Region),
		RiskLevel:                domain.RiskLevel(d.RiskLevel),
		Patterns:                 d.Patterns,
		ToolCallsMade:            d.ToolCallsMade,
		ResourcesOffered:         d.ResourcesOffered,
		AIFailureDetected:        d.AIFailureDetected,
		ModelDegradationDetected: d.ModelDegradationDetected,
		ConversationStopped:      d.ConversationStopped,
		FailureReason:            d.FailureReason,
		Degraded:                 d.Degraded,
		ReviewerStatus:           ReviewerStatus(d.ReviewerStatus),
		CreatedAt:                d.CreatedAt,
	}
}

// Append inserts event, treating a duplicate id as a successful no-op so
// retried appends (e.g. after an orchestrator timeout on the write itself)
// remain idempotent.
func (s *MongoStore) Append(ctx context.Context, event *CrisisEvent) error {
	_, err := s.events.InsertOne(ctx, toDoc(event))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("audit: append event %q: %w", event.ID, err)
	}
	return nil
}

// Get returns a single event by id.
func (s *MongoStore) Get(ctx context.Context, id string) (*CrisisEvent, error) {
	var doc eventDoc
	if err := s.events.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("audit: event %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("audit: get event %q: %w", id, err)
	}
	return fromDoc(doc), nil
}

// List returns events for conversationID, most recent first.
func (s *MongoStore) List(ctx context.Context, conversationID string, limit int) ([]*CrisisEvent, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cur, err := s.events.Find(ctx, bson.D{{Key: "conversation_id", Value: conversationID}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("audit: list events for %q: %w", conversationID, err)
	}
	defer cur.Close(ctx)

	var out []*CrisisEvent
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("audit: decode event: %w", err)
		}
		out = append(out, fromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("audit: cursor error listing events for %q: %w", conversationID, err)
	}
	return out, nil
}

// ErrNotFound is returned by Get when no event exists with the given id.
var ErrNotFound = errors.New("audit: event not found")
