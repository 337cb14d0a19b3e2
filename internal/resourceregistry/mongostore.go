package resourceregistry

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// MongoStore is a Store backed by three collections mirroring the
// relational layout in §6: resources, verification_log,
// known_fabrications. It is adapted from the append-only runlog store this
// module descends from, extended with a resources collection and
// idempotent verification-log inserts.
type MongoStore struct {
	resources     *mongo.Collection
	verifications *mongo.Collection
	fabrications  *mongo.Collection
}

// MongoStoreOptions configures NewMongoStore.
type MongoStoreOptions struct {
	Client   *mongo.Client
	Database string
}

// NewMongoStore constructs a MongoStore and ensures the indexes required by
// the §3 uniqueness and idempotency invariants.
func NewMongoStore(ctx context.Context, opts MongoStoreOptions) (*MongoStore, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("resourceregistry: mongo client is required")
	}
	db := opts.Database
	if db == "" {
		db = "crisis_registry"
	}
	s := &MongoStore{
		resources:     opts.Client.Database(db).Collection("resources"),
		verifications: opts.Client.Database(db).Collection("verification_log"),
		fabrications:  opts.Client.Database(db).Collection("known_fabrications"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("resourceregistry: ensure indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.resources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "region", Value: 1}, {Key: "service_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.verifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "target_resource_id", Value: 1}, {Key: "attempted_at", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.fabrications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "value", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type channelDoc struct {
	Kind  string `bson:"kind"`
	Value string `bson:"value"`
}

type resourceDoc struct {
	ID                  string       `bson:"_id"`
	Region              string       `bson:"region"`
	ServiceName         string       `bson:"service_name"`
	Tier                int          `bson:"tier"`
	SituationTypes      []string     `bson:"situation_types"`
	TopicalTags         []string     `bson:"topical_tags"`
	Channels            []channelDoc `bson:"channels"`
	Hours               string       `bson:"hours"`
	Languages           []string     `bson:"languages"`
	Description         string       `bson:"description"`
	VerifiedOn          time.Time    `bson:"verified_on"`
	VerifiedBy          string       `bson:"verified_by"`
	VerificationMethod  string       `bson:"verification_method"`
	NextVerificationDue time.Time    `bson:"next_verification_due"`
	Status              string       `bson:"status"`
}

type fabricationDoc struct {
	Value            string    `bson:"value"`
	Kind             string    `bson:"kind"`
	FirstObserved    time.Time `bson:"first_observed"`
	LastObserved     time.Time `bson:"last_observed"`
	OriginatingModel string    `bson:"originating_model"`
	Notes            string    `bson:"notes"`
}

type verificationDoc struct {
	TargetResourceID string    `bson:"target_resource_id"`
	AttemptedAt      time.Time `bson:"attempted_at"`
	VerifierID       string    `bson:"verifier_id"`
	Method           string    `bson:"method"`
	Outcome          string    `bson:"outcome"`
	Notes            string    `bson:"notes"`
}

// LoadAll returns every resource and known fabrication currently on record.
func (s *MongoStore) LoadAll(ctx context.Context) ([]*Resource, []*KnownFabrication, error) {
	resources, err := s.loadResources(ctx)
	if err != nil {
		return nil, nil, err
	}
	fabrications, err := s.loadFabrications(ctx)
	if err != nil {
		return nil, nil, err
	}
	return resources, fabrications, nil
}

func (s *MongoStore) loadResources(ctx context.Context) ([]*Resource, error) {
	cur, err := s.resources.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find resources: %w", err)
	}
	defer cur.Close(ctx)

	var out []*Resource
	for cur.Next(ctx) {
		var doc resourceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode resource: %w", err)
		}
		out = append(out, resourceFromDoc(doc))
	}
	return out, cur.Err()
}

func (s *MongoStore) loadFabrications(ctx context.Context) ([]*KnownFabrication, error) {
	cur, err := s.fabrications.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find fabrications: %w", err)
	}
	defer cur.Close(ctx)

	var out []*KnownFabrication
	for cur.Next(ctx) {
		var doc fabricationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode fabrication: %w", err)
		}
		out = append(out, &KnownFabrication{
			Value:            doc.Value,
			Kind:             domain.ChannelKind(doc.Kind),
			FirstObserved:    doc.FirstObserved,
			LastObserved:     doc.LastObserved,
			OriginatingModel: doc.OriginatingModel,
			Notes:            doc.Notes,
		})
	}
	return out, cur.Err()
}

// SaveResource upserts a single resource row keyed by id.
func (s *MongoStore) SaveResource(ctx context.Context, r *Resource) error {
	doc := resourceToDoc(r)
	_, err := s.resources.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save resource %q: %w", r.ID, err)
	}
	return nil
}

// AppendVerification inserts a verification_log row. The unique
// (target_resource_id, attempted_at) index makes the insert idempotent: a
// duplicate key error from a retried write is treated as success.
func (s *MongoStore) AppendVerification(ctx context.Context, event *VerificationEvent) error {
	doc := verificationDoc{
		TargetResourceID: event.TargetResourceID,
		AttemptedAt:      event.AttemptedAt,
		VerifierID:       event.VerifierID,
		Method:           event.Method,
		Outcome:          string(event.Outcome),
		Notes:            event.Notes,
	}
	_, err := s.verifications.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("append verification for %q: %w", event.TargetResourceID, err)
	}
	return nil
}

func resourceToDoc(r *Resource) resourceDoc {
	channels := make([]channelDoc, 0, len(r.Channels))
	for _, c := range r.Channels {
		channels = append(channels, channelDoc{Kind: string(c.Kind), Value: c.Value})
	}
	situations := make([]string, 0, len(r.SituationTypes))
	for _, st := range r.SituationTypes {
		situations = append(situations, string(st))
	}
	tags := make([]string, 0, len(r.TopicalTags))
	for _, t := range r.TopicalTags {
		tags = append(tags, string(t))
	}
	return resourceDoc{
		ID:                  r.ID,
		Region:              string(r.Region),
		ServiceName:         r.ServiceName,
		Tier:                int(r.Tier),
		SituationTypes:      situations,
		TopicalTags:         tags,
		Channels:            channels,
		Hours:               r.Hours,
		Languages:           r.Languages,
		Description:         r.Description,
		VerifiedOn:          r.VerifiedOn,
		VerifiedBy:          r.VerifiedBy,
		VerificationMethod:  r.VerificationMethod,
		NextVerificationDue: r.NextVerificationDue,
		Status:              string(r.Status),
	}
}

func resourceFromDoc(doc resourceDoc) *Resource {
	channels := make([]Channel, 0, len(doc.Channels))
	for _, c := range doc.Channels {
		channels = append(channels, Channel{Kind: domain.ChannelKind(c.Kind), Value: c.Value})
	}
	situations := make([]domain.SituationType, 0, len(doc.SituationTypes))
	for _, st := range doc.SituationTypes {
		situations = append(situations, domain.SituationType(st))
	}
	tags := make([]domain.TopicalTag, 0, len(doc.TopicalTags))
	for _, t := range doc.TopicalTags {
		tags = append(tags, domain.TopicalTag(t))
	}
	return &Resource{
		ID:                  doc.ID,
		Region:              domain.Region(doc.Region),
		ServiceName:         doc.ServiceName,
		Tier:                SupportTier(doc.Tier),
		SituationTypes:      situations,
		TopicalTags:         tags,
		Channels:            channels,
		Hours:               doc.Hours,
		Languages:           doc.Languages,
		Description:         doc.Description,
		VerifiedOn:          doc.VerifiedOn,
		VerifiedBy:          doc.VerifiedBy,
		VerificationMethod:  doc.VerificationMethod,
		NextVerificationDue: doc.NextVerificationDue,
		Status:              domain.ResourceStatus(doc.Status),
	}
}
