package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"surveybot/internal/model"
)

func TestSubmissionRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("save", func(mt *mtest.T) {
		repo := &submissionRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Save(ctx, &model.Submission{
			ID:           "sub-1",
			RespondentID: 42,
			Rows:         []model.Row{{Label: "Q", Text: "A"}},
			Status:       model.ExportStatusExported,
			CompletedAt:  completed,
		})
		assert.NoError(mt, err)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := &submissionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "sub-1"},
			{Key: "respondentId", Value: int64(42)},
			{Key: "rows", Value: bson.A{bson.D{{Key: "label", Value: "Q"}, {Key: "text", Value: "A"}}}},
			{Key: "status", Value: "failed"},
			{Key: "error", Value: "timeout"},
			{Key: "completedAt", Value: completed},
		}))

		s, err := repo.GetByID(ctx, "sub-1")
		require.NoError(mt, err)
		assert.Equal(mt, "sub-1", s.ID)
		assert.Equal(mt, model.RespondentID(42), s.RespondentID)
		assert.Equal(mt, []model.Row{{Label: "Q", Text: "A"}}, s.Rows)
		assert.Equal(mt, model.ExportStatusFailed, s.Status)
		assert.Equal(mt, "timeout", s.Error)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := &submissionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(mt, err, ErrSubmissionNotFound)
	})

	mt.Run("list recent", func(mt *mtest.T) {
		repo := &submissionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "b"}, {Key: "respondentId", Value: int64(2)}, {Key: "status", Value: "exported"}},
			bson.D{{Key: "_id", Value: "a"}, {Key: "respondentId", Value: int64(1)}, {Key: "status", Value: "exported"}},
		))

		list, err := repo.ListRecent(ctx, 10)
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, "b", list[0].ID)
		assert.Equal(mt, "a", list[1].ID)
	})

	mt.Run("list by respondent empty", func(mt *mtest.T) {
		repo := &submissionRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		list, err := repo.ListByRespondent(ctx, 7)
		require.NoError(mt, err)
		assert.NotNil(mt, list)
		assert.Empty(mt, list)
	})
}
