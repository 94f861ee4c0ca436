package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveybot/internal/model"
)

var ErrSubmissionNotFound = errors.New("submission not found")

const maxListLimit = 500

// SubmissionRepository archives finished questionnaires
type SubmissionRepository interface {
	Save(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Submission, error)
	ListByRespondent(ctx context.Context, id model.RespondentID) ([]*model.Submission, error)
}

type submissionRepository struct {
	collection *mongo.Collection
}

// NewSubmissionRepository uses the submissions collection of database
func NewSubmissionRepository(client *mongo.Client, database string) SubmissionRepository {
	return &submissionRepository{
		collection: client.Database(database).Collection("submissions"),
	}
}

// EnsureIndexes creates the listing indexes
func EnsureIndexes(ctx context.Context, client *mongo.Client, database string) error {
	_, err := client.Database(database).Collection("submissions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "completedAt", Value: -1}}},
		{Keys: bson.D{{Key: "respondentId", Value: 1}, {Key: "completedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create submission indexes: %w", err)
	}
	return nil
}

func (r *submissionRepository) Save(ctx context.Context, s *model.Submission) error {
	_, err := r.collection.InsertOne(ctx, s)
	return err
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var s model.Submission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListRecent returns the newest submissions first
func (r *submissionRepository) ListRecent(ctx context.Context, limit int) ([]*model.Submission, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "completedAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *submissionRepository) ListByRespondent(ctx context.Context, id model.RespondentID) ([]*model.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	return r.find(ctx, bson.M{"respondentId": id}, opts)
}

func (r *submissionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Submission, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	submissions := make([]*model.Submission, 0)
	if err = cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}
