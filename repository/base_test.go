/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tomoncle/mongokit/database"
	"github.com/tomoncle/mongokit/entity"
	"github.com/tomoncle/mongokit/sequence"
	"github.com/tomoncle/mongokit/types"
	"github.com/tomoncle/mongokit/update"
)

type Book struct {
	entity.NumberID `bson:",inline"`
	entity.Audit    `bson:",inline"`

	BookName string  `bson:"BookName"`
	Price    float64 `bson:"Price"`
	Category string  `bson:"Category"`
	Author   string  `bson:"Author"`
}

type Tag struct {
	entity.StringID `bson:",inline"`
	entity.Audit    `bson:",inline"`

	Label string `bson:"label"`
}

type Event struct {
	entity.ObjectID `bson:",inline"`
	entity.Audit    `bson:",inline"`
}

type counterStore struct {
	mu    sync.Mutex
	value map[string]int64
	calls int
}

func (s *counterStore) Increment(_ context.Context, name string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		s.value = make(map[string]int64)
	}
	s.calls++
	s.value[name] += n
	return s.value[name], nil
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) SetLevel(database.LogLevel) {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{}) {}
func (l *recordingLogger) Error(string, ...interface{}) {}

func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func newBooks(mt *mtest.T, opts ...Option) (Repository[Book, int64], *counterStore) {
	mt.Helper()
	store := &counterStore{}
	opts = append([]Option{
		WithNames(entity.Names{Storage: "Books"}),
		WithAllocator(sequence.NewAllocator(store, nil)),
	}, opts...)
	repo, err := New[Book, int64](mt.DB, opts...)
	require.NoError(mt, err)
	return repo, store
}

func ns(mt *mtest.T) string {
	return mt.DB.Name() + ".Books"
}

func bookDoc(id int64, name string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "BookName", Value: name},
		{Key: "created_by", Value: int64(1)},
		{Key: "updated_by", Value: int64(1)},
		{Key: "is_deleted", Value: false},
	}
}

func TestNewRequiresAllocator(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("integer identity", func(mt *mtest.T) {
		repo, err := New[Book, int64](mt.DB)
		require.ErrorIs(mt, err, types.ErrConfiguration)
		require.NotNil(mt, repo)

		_, err = repo.GetByID(context.Background(), 1)
		assert.ErrorIs(mt, err, types.ErrConfiguration)
		assert.ErrorIs(mt, repo.Add(context.Background(), &Book{}), types.ErrConfiguration)
	})

	mt.Run("string identity", func(mt *mtest.T) {
		repo, err := New[Tag, string](mt.DB)
		require.NoError(mt, err)
		assert.Equal(mt, "Tag", repo.StorageName())
		assert.Equal(mt, "Tag", repo.SequenceName())
	})

	mt.Run("names", func(mt *mtest.T) {
		repo, err := New[Tag, string](mt.DB, WithNames(entity.Names{Storage: "Tags", Sequence: "TagSeq"}))
		require.NoError(mt, err)
		assert.Equal(mt, "Tags", repo.StorageName())
		assert.Equal(mt, "TagSeq", repo.SequenceName())
		assert.Equal(mt, "Tags", repo.Collection(false).Name())
		assert.Equal(mt, "Tags", repo.Collection(true).Name())
	})
}

func TestGetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("zero identity", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		_, err := repo.GetByID(ctx, 0)
		assert.ErrorIs(mt, err, types.ErrInvalidArgument)
	})

	mt.Run("found", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(7, "Dune")))

		book, err := repo.GetByID(ctx, 7, types.WithReadSecondary())
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), book.ID)
		assert.Equal(mt, "Dune", book.BookName)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.GetByID(ctx, 7)
		assert.ErrorIs(mt, err, types.ErrNotFound)
		assert.True(mt, types.IsNotFound(err))
	})
}

func TestGetByIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("nil and empty", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		_, err := repo.GetByIDs(ctx, nil)
		assert.ErrorIs(mt, err, types.ErrInvalidArgument)

		books, err := repo.GetByIDs(ctx, []int64{})
		require.NoError(mt, err)
		assert.Empty(mt, books)
		assert.NotNil(mt, books)
	})

	mt.Run("chunks keep order", func(mt *mtest.T) {
		repo, _ := newBooks(mt, WithBatchConcurrency(1))
		ids := make([]int64, 2500)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(1, "a"), bookDoc(2, "b")),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(1001, "c")),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(2001, "d")),
		)

		books, err := repo.GetByIDs(ctx, ids)
		require.NoError(mt, err)
		require.Len(mt, books, 4)
		for i, want := range []int64{1, 2, 1001, 2001} {
			assert.Equal(mt, want, books[i].ID)
		}
	})

	mt.Run("chunk error", func(mt *mtest.T) {
		repo, _ := newBooks(mt, WithBatchConcurrency(1))
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))

		_, err := repo.GetByIDs(ctx, []int64{1, 2})
		require.Error(mt, err)
	})

	mt.Run("cancelled", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.GetByIDs(cctx, []int64{1})
		require.Error(mt, err)
	})
}

func TestChunk(t *testing.T) {
	ids := make([]int64, 2001)
	parts := chunk(ids, MaxBatchSize)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 1000)
	assert.Len(t, parts[1], 1000)
	assert.Len(t, parts[2], 1)
	assert.Empty(t, chunk([]int64{}, MaxBatchSize))
}

func TestGetBy(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("match all", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(1, "a"), bookDoc(2, "b")))

		books, err := repo.GetBy(context.Background(), nil, types.WithSort("BookName", types.Descending))
		require.NoError(mt, err)
		assert.Len(mt, books, 2)
	})

	mt.Run("paging", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bookDoc(11, "k")))

		books, err := repo.GetPaging(context.Background(), 2, 10, bson.D{{Key: "is_deleted", Value: false}})
		require.NoError(mt, err)
		require.Len(mt, books, 1)
		assert.Equal(mt, int64(11), books[0].ID)
	})
}

func TestGetPagination(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("page", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
			{Key: "total", Value: int32(45)},
			{Key: "data", Value: bson.A{bookDoc(21, "u"), bookDoc(22, "v")}},
		}))

		p, err := repo.GetPagination(ctx, 3, 10, bson.D{{Key: "is_deleted", Value: false}}, types.WithAllowDiskUse())
		require.NoError(mt, err)
		assert.Equal(mt, int64(45), p.Total)
		assert.Equal(mt, 3, p.Page)
		assert.Equal(mt, 10, p.PageSize)
		require.Len(mt, p.Items, 2)
		assert.Equal(mt, int64(21), p.Items[0].ID)
	})

	mt.Run("no match", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		p, err := repo.GetPagination(ctx, 0, 500, nil)
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), p.Total)
		assert.Empty(mt, p.Items)
		assert.Equal(mt, 1, p.Page)
		assert.Equal(mt, types.DefaultPageSize, p.PageSize)
	})

	mt.Run("page request", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		p, err := repo.Page(ctx, types.NewPageRequest(-1, 0, nil, types.WithSort("Price", types.Ascending)))
		require.NoError(mt, err)
		assert.Equal(mt, 1, p.Page)
		assert.Equal(mt, 20, p.PageSize)
	})
}

func TestGetCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("count", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		n, err := repo.GetCount(context.Background(), nil)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
}

func TestAdd(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("allocates integer identity", func(mt *mtest.T) {
		repo, store := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		book := &Book{BookName: "Dune", Price: 9.5}
		book.CreatedBy, book.UpdatedBy = 3, 3
		require.NoError(mt, repo.Add(ctx, book))

		assert.Equal(mt, int64(1), book.ID)
		assert.Equal(mt, 1, store.calls)
		assert.False(mt, book.CreatedAt.IsZero())
		assert.Equal(mt, book.CreatedAt, book.UpdatedAt)
	})

	mt.Run("invariant before allocation", func(mt *mtest.T) {
		repo, store := newBooks(mt)

		book := &Book{BookName: "Dune"}
		book.UpdatedBy = 3
		err := repo.Add(ctx, book)
		assert.ErrorIs(mt, err, types.ErrInvariantViolation)
		assert.Zero(mt, book.ID)
		assert.Zero(mt, store.calls)
		assert.True(mt, book.UpdatedAt.IsZero())
	})

	mt.Run("nil entity", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		assert.ErrorIs(mt, repo.Add(ctx, nil), types.ErrInvalidArgument)
	})

	mt.Run("keeps supplied integer identity", func(mt *mtest.T) {
		repo, store := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		book := &Book{}
		book.ID = 99
		book.CreatedBy, book.UpdatedBy = 3, 3
		require.NoError(mt, repo.Add(ctx, book))
		assert.Equal(mt, int64(99), book.ID)
		assert.Zero(mt, store.calls)
	})

	mt.Run("string identity", func(mt *mtest.T) {
		repo, err := New[Tag, string](mt.DB)
		require.NoError(mt, err)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		tag := &Tag{Label: "sci-fi"}
		tag.CreatedBy, tag.UpdatedBy = 1, 1
		require.NoError(mt, repo.Add(ctx, tag))
		assert.Len(mt, tag.ID, 32)
	})

	mt.Run("object identity must be supplied", func(mt *mtest.T) {
		repo, err := New[Event, primitive.ObjectID](mt.DB)
		require.NoError(mt, err)

		ev := &Event{}
		ev.CreatedBy, ev.UpdatedBy = 1, 1
		assert.ErrorIs(mt, repo.Add(ctx, ev), types.ErrInvalidArgument)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		ev.ID = primitive.NewObjectID()
		require.NoError(mt, repo.Add(ctx, ev))
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		logger := &recordingLogger{}
		repo, _ := newBooks(mt, WithLogger(logger))
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		book := &Book{}
		book.CreatedBy, book.UpdatedBy = 1, 1
		err := repo.Add(ctx, book)
		require.Error(mt, err)
		assert.True(mt, database.IsDuplicateKey(err))
		assert.Equal(mt, []string{"insert collided with an existing identity"}, logger.warns)
	})
}

func TestAddMany(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("one allocation per batch", func(mt *mtest.T) {
		repo, store := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		books := []*Book{{}, {}, {}}
		books[1].ID = 50
		for _, b := range books {
			b.CreatedBy, b.UpdatedBy = 2, 2
		}
		require.NoError(mt, repo.AddMany(ctx, books))

		assert.Equal(mt, 1, store.calls)
		assert.Equal(mt, int64(1), books[0].ID)
		assert.Equal(mt, int64(50), books[1].ID)
		assert.Equal(mt, int64(2), books[2].ID)
		assert.Equal(mt, books[0].CreatedAt, books[2].CreatedAt)
	})

	mt.Run("any invalid element stops the batch", func(mt *mtest.T) {
		repo, store := newBooks(mt)
		books := []*Book{{}, {}}
		books[0].CreatedBy, books[0].UpdatedBy = 2, 2

		assert.ErrorIs(mt, repo.AddMany(ctx, books), types.ErrInvariantViolation)
		assert.Zero(mt, store.calls)
		assert.Zero(mt, books[0].ID)

		assert.ErrorIs(mt, repo.AddMany(ctx, []*Book{nil}), types.ErrInvalidArgument)

		twice := &Book{}
		twice.CreatedBy, twice.UpdatedBy = 2, 2
		assert.ErrorIs(mt, repo.AddMany(ctx, []*Book{twice, twice}), types.ErrInvalidArgument)
		assert.Zero(mt, twice.ID)
		assert.ErrorIs(mt, repo.AddMany(ctx, nil), types.ErrInvalidArgument)
		assert.NoError(mt, repo.AddMany(ctx, []*Book{}))
	})
}

func TestUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("zero actor", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		book := &Book{}
		book.ID = 1
		assert.ErrorIs(mt, repo.Update(ctx, book, 0), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.Update(ctx, nil, 1), types.ErrInvalidArgument)
	})

	mt.Run("no identity inserts", func(mt *mtest.T) {
		repo, store := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		book := &Book{BookName: "new"}
		require.NoError(mt, repo.Update(ctx, book, 4))
		assert.Equal(mt, int64(1), book.ID)
		assert.Equal(mt, int64(4), book.CreatedBy)
		assert.Equal(mt, int64(4), book.UpdatedBy)
		assert.Equal(mt, 1, store.calls)
	})

	mt.Run("replace", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		book := &Book{BookName: "old"}
		book.ID = 5
		book.CreatedBy, book.UpdatedBy = 1, 1
		book.CreatedAt = created
		require.NoError(mt, repo.Update(ctx, book, 8))
		assert.Equal(mt, int64(8), book.UpdatedBy)
		assert.False(mt, book.UpdatedAt.IsZero())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		var cmd struct {
			Updates []struct {
				U bson.M `bson:"u"`
			} `bson:"updates"`
		}
		require.NoError(mt, bson.Unmarshal(started.Command, &cmd))
		require.Len(mt, cmd.Updates, 1)
		assert.Equal(mt, int64(1), cmd.Updates[0].U["created_by"])
		assert.Equal(mt, primitive.NewDateTimeFromTime(created), cmd.Updates[0].U["created_at"])
	})

	mt.Run("replace keeps creation fields", func(mt *mtest.T) {
		repo, _ := newBooks(mt)

		book := &Book{BookName: "renamed"}
		book.ID = 5
		err := repo.Update(ctx, book, 9)
		assert.ErrorIs(mt, err, types.ErrInvariantViolation)
		assert.Zero(mt, book.UpdatedBy, "entity untouched")
		assert.True(mt, book.UpdatedAt.IsZero())

		book.CreatedBy = 3
		assert.ErrorIs(mt, repo.Update(ctx, book, 9), types.ErrInvariantViolation)
		assert.Nil(mt, mt.GetStartedEvent(), "nothing written")
	})

	mt.Run("fields", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		book := &Book{}
		book.ID = 5
		book.BookName = "renamed"
		require.NoError(mt, repo.Update(ctx, book, 8, update.String("BookName", book.BookName)))
		assert.Equal(mt, int64(8), book.UpdatedBy)
		assert.False(mt, book.UpdatedAt.IsZero())
	})
}

func TestPartialUpdate(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)

	set, actor, err := partialUpdate("Update", []update.Field{update.String("BookName", "Dune")}, 8, now)
	require.NoError(t, err)
	assert.Equal(t, int64(8), actor)
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "BookName", Value: "Dune"},
		{Key: "updated_by", Value: int64(8)},
		{Key: "updated_at", Value: now},
	}}}, set)

	stale := now.Add(-time.Hour)
	set, actor, err = partialUpdate("Update", []update.Field{
		update.Int64(entity.FieldUpdatedBy, 9),
		update.Time(entity.FieldUpdatedAt, stale),
	}, 8, now)
	require.NoError(t, err)
	assert.Equal(t, int64(9), actor)
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "updated_by", Value: int64(9)},
		{Key: "updated_at", Value: now},
	}}}, set)

	_, _, err = partialUpdate("Update", []update.Field{update.Int64(entity.FieldUpdatedBy, 0)}, 8, now)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)

	_, _, err = partialUpdate("Update", []update.Field{update.String(entity.FieldUpdatedBy, "x")}, 8, now)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)
}

func TestSoftDeleteDocument(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_deleted", Value: true},
		{Key: "updated_at", Value: now},
		{Key: "updated_by", Value: int64(6)},
	}}}, softDelete(now, 6))
}

func TestDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("validation", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		book := &Book{}
		assert.ErrorIs(mt, repo.Delete(ctx, nil, 1), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.Delete(ctx, book, 1), types.ErrInvalidArgument)
		book.ID = 3
		assert.ErrorIs(mt, repo.Delete(ctx, book, 0), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.DeleteByID(ctx, 0, 1), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.DeleteByID(ctx, 3, 0), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.DeleteByIDs(ctx, nil, 1), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.DeleteByIDs(ctx, []int64{3}, 0), types.ErrInvalidArgument)
		assert.NoError(mt, repo.DeleteByIDs(ctx, []int64{}, 1))
		assert.ErrorIs(mt, repo.HardDelete(ctx, nil), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.HardDeleteByID(ctx, 0), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.HardDeleteByIDs(ctx, nil), types.ErrInvalidArgument)
		assert.NoError(mt, repo.HardDeleteByIDs(ctx, []int64{}))
	})

	mt.Run("soft delete stamps entity", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		book := &Book{}
		book.ID = 3
		require.NoError(mt, repo.Delete(ctx, book, 6))
		assert.True(mt, book.IsDeleted)
		assert.Equal(mt, int64(6), book.UpdatedBy)
		assert.False(mt, book.UpdatedAt.IsZero())
	})

	mt.Run("by ids", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)
		require.NoError(mt, repo.DeleteByIDs(ctx, []int64{1, 2}, 6))
		require.NoError(mt, repo.HardDeleteByID(ctx, 1))
		require.NoError(mt, repo.HardDeleteByIDs(ctx, []int64{1, 2}))
	})
}

func TestScroll(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	noop := func([]*Book) error { return nil }

	mt.Run("validation", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		assert.ErrorIs(mt, repo.Scroll(ctx, nil, 10, noop), types.ErrInvalidArgument)
		assert.ErrorIs(mt, repo.Scroll(ctx, bson.D{}, 10, nil), types.ErrInvalidArgument)
	})

	mt.Run("one call per batch", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(42, ns(mt), mtest.FirstBatch, bookDoc(1, "a"), bookDoc(2, "b")),
			mtest.CreateCursorResponse(0, ns(mt), mtest.NextBatch, bookDoc(3, "c")),
		)

		var sizes []int
		err := repo.Scroll(ctx, bson.D{}, 2, func(batch []*Book) error {
			sizes = append(sizes, len(batch))
			return nil
		}, types.WithScrollErrors(types.ScrollPropagate))
		require.NoError(mt, err)
		assert.Equal(mt, []int{2, 1}, sizes)
	})

	mt.Run("propagate", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(42, ns(mt), mtest.FirstBatch, bookDoc(1, "a")),
			mtest.CreateSuccessResponse(),
		)

		boom := errors.New("boom")
		err := repo.Scroll(ctx, bson.D{}, 1, func([]*Book) error { return boom },
			types.WithScrollErrors(types.ScrollPropagate))
		assert.ErrorIs(mt, err, boom)
	})

	mt.Run("suppress by default", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(42, ns(mt), mtest.FirstBatch, bookDoc(1, "a")),
			mtest.CreateSuccessResponse(),
		)

		err := repo.Scroll(ctx, bson.D{}, 0, func([]*Book) error { return errors.New("boom") })
		assert.NoError(mt, err)
	})

	mt.Run("repository policy", func(mt *mtest.T) {
		repo, _ := newBooks(mt, WithScrollPolicy(types.ScrollPropagate))
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad filter"}))

		err := repo.Scroll(ctx, bson.D{}, 10, noop)
		require.Error(mt, err)
	})
}

func TestSequenceAccess(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("next ids", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		id, err := repo.NextID(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), id)

		ids, err := repo.NextIDs(ctx, 3)
		require.NoError(mt, err)
		assert.Equal(mt, []int64{2, 3, 4}, ids)

		ids, err = repo.NextIDs(ctx, 0)
		require.NoError(mt, err)
		assert.Empty(mt, ids)

		_, err = repo.NextIDs(ctx, -1)
		assert.ErrorIs(mt, err, types.ErrInvalidArgument)
	})

	mt.Run("no allocator", func(mt *mtest.T) {
		repo, err := New[Tag, string](mt.DB)
		require.NoError(mt, err)
		_, err = repo.NextID(ctx)
		assert.ErrorIs(mt, err, types.ErrConfiguration)
	})

	mt.Run("check data", func(mt *mtest.T) {
		repo, _ := newBooks(mt)
		book := &Book{}
		book.UpdatedBy = 1
		require.NoError(mt, repo.CheckData(ctx, book, false))
		assert.Equal(mt, int64(1), book.ID)
		assert.False(mt, book.UpdatedAt.IsZero())
		assert.True(mt, book.CreatedAt.IsZero())

		assert.ErrorIs(mt, repo.CheckData(ctx, &Book{}, true), types.ErrInvariantViolation)
	})
}
