package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/waitlister-api/internal/models"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const waitlistersCollection = "waitlisters"

type mongoWaitlistRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoWaitlistRepository ensures the collection indexes and returns a
// repository over them. The unique email index is what enforces one entry
// per address under concurrent registrations.
func NewMongoWaitlistRepository(ctx context.Context, db *mongo.Database, timeout time.Duration) (WaitlistRepository, error) {
	repo := &mongoWaitlistRepository{
		collection: db.Collection(waitlistersCollection),
		timeout:    timeout,
	}

	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (mr *mongoWaitlistRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_waitlisters_email"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_waitlisters_created_at"),
		},
		{
			Keys:    bson.D{{Key: "notified", Value: 1}},
			Options: options.Index().SetName("idx_waitlisters_notified"),
		},
	}

	if _, err := mr.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure waitlister indexes: %w", err)
	}
	return nil
}

func (mr *mongoWaitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := mr.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewConflictError(MsgDuplicateEmail, err)
		}
		return nil, mongoStoreError(ctx, err)
	}

	return entry, nil
}

func (mr *mongoWaitlistRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	n, err := mr.collection.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoStoreError(ctx, err)
	}
	return n > 0, nil
}

func (mr *mongoWaitlistRepository) ListEntries(ctx context.Context, filter ListFilter) ([]*models.WaitlistEntry, int64, error) {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	query := bson.M{}
	if filter.Notified != nil {
		query["notified"] = *filter.Notified
	}

	total, err := mr.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mongoStoreError(ctx, err)
	}

	if !filter.reaches(total) {
		return []*models.WaitlistEntry{}, total, nil
	}
	entries := make([]*models.WaitlistEntry, 0, filter.capacity(total))

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))

	cursor, err := mr.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, mongoStoreError(ctx, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, mongoStoreError(ctx, err)
	}

	return entries, total, nil
}

func (mr *mongoWaitlistRepository) CountEntries(ctx context.Context) (*EntryCounts, error) {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$notified"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := mr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongoStoreError(ctx, err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Notified bool  `bson:"_id"`
		Count    int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, mongoStoreError(ctx, err)
	}

	counts := &EntryCounts{}
	for _, g := range groups {
		if g.Notified {
			counts.Notified += g.Count
		} else {
			counts.NotNotified += g.Count
		}
	}
	counts.Total = counts.Notified + counts.NotNotified

	return counts, nil
}

func (mr *mongoWaitlistRepository) Ping(ctx context.Context) error {
	ctx, cancel := withStoreTimeout(ctx, mr.timeout)
	defer cancel()

	if err := mr.collection.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return mongoStoreError(ctx, err)
	}
	return nil
}

func mongoStoreError(ctx context.Context, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return apperrors.NewServiceUnavailableError(MsgStoreUnavailable, err)
	}
	return storeError(ctx, err)
}
