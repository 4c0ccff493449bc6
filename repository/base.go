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
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/tomoncle/mongokit/database"
	"github.com/tomoncle/mongokit/entity"
	"github.com/tomoncle/mongokit/pagination"
	"github.com/tomoncle/mongokit/sequence"
	"github.com/tomoncle/mongokit/types"
	"github.com/tomoncle/mongokit/update"
)

type baseRepositoryImpl[T any, ID comparable, PT entity.Document[T, ID]] struct {
	collection          *mongo.Collection
	secondaryCollection *mongo.Collection
	storage             string
	sequence            string
	kind                entity.IdentityKind
	allocator           *sequence.Allocator
	logger              database.Logger
	scrollPolicy        types.ScrollPolicy
	batchConcurrency    int
	// err is the construction failure, returned again by every call.
	err error
}

// New returns a repository for documents of type T stored in db. Names come
// from WithNames, the entity registry, or the type name.
//
// When T uses integer identities an allocator is required. Without one New
// returns a configuration error together with a repository whose every call
// fails with that same error before any I/O.
func New[T any, ID comparable, PT entity.Document[T, ID]](db *mongo.Database, opts ...Option) (Repository[T, ID], error) {
	c := newConfig(opts)
	storage, seq := entity.ResolveNames[T](c.names)

	r := &baseRepositoryImpl[T, ID, PT]{
		storage:          storage,
		sequence:         seq,
		kind:             entity.KindOf[T, ID, PT](),
		allocator:        c.allocator,
		logger:           c.logger,
		scrollPolicy:     c.scrollPolicy,
		batchConcurrency: c.batchConcurrency,
	}

	switch r.kind {
	case entity.KindString, entity.KindObject:
	case entity.KindNumber:
		if r.allocator == nil {
			r.err = types.Configuration("New", "%s uses integer identities but no allocator is configured", storage)
		}
	default:
		r.err = types.Configuration("New", "unsupported identity kind %s", r.kind)
	}
	if db == nil && r.err == nil {
		r.err = types.Configuration("New", "database is nil")
	}
	if db != nil {
		r.collection = db.Collection(storage)
		r.secondaryCollection = db.Collection(storage,
			options.Collection().SetReadPreference(readpref.SecondaryPreferred()))
	}
	return r, r.err
}

func (r *baseRepositoryImpl[T, ID, PT]) StorageName() string { return r.storage }

func (r *baseRepositoryImpl[T, ID, PT]) SequenceName() string { return r.sequence }

// Collection returns the primary collection, or the secondary-preferred one.
func (r *baseRepositoryImpl[T, ID, PT]) Collection(readSecondary bool) *mongo.Collection {
	if readSecondary {
		return r.secondaryCollection
	}
	return r.collection
}

func (r *baseRepositoryImpl[T, ID, PT]) GetByID(ctx context.Context, id ID, opts ...types.FindOption) (*T, error) {
	const op = "GetByID"
	if r.err != nil {
		return nil, r.err
	}
	if isZero(id) {
		return nil, types.InvalidArgument(op, entity.FieldID, "identity is required")
	}

	o := types.NewFindOptions(opts...)
	fo := options.FindOne()
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}

	doc := new(T)
	err := r.Collection(o.ReadSecondary).FindOne(ctx, idFilter(id), fo).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.NewError(types.ErrNotFound, op, entity.FieldID, fmt.Errorf("%s %v", r.storage, id))
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", r.storage, err)
	}
	return doc, nil
}

// GetByIDs looks ids up in chunks of MaxBatchSize queried in parallel.
// Results keep chunk order; order inside a chunk is the server's.
func (r *baseRepositoryImpl[T, ID, PT]) GetByIDs(ctx context.Context, ids []ID, opts ...types.FindOption) ([]*T, error) {
	const op = "GetByIDs"
	if r.err != nil {
		return nil, r.err
	}
	if ids == nil {
		return nil, types.InvalidArgument(op, "ids", "ids must not be nil")
	}
	if len(ids) == 0 {
		return []*T{}, nil
	}

	o := types.NewFindOptions(opts...)
	chunks := chunk(ids, MaxBatchSize)
	results := make([][]*T, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchConcurrency)
	for i, part := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			items, err := r.find(gctx, inFilter(part), o, nil)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(ids))
	for _, part := range results {
		items = append(items, part...)
	}
	return items, nil
}

func (r *baseRepositoryImpl[T, ID, PT]) GetBy(ctx context.Context, filter interface{}, opts ...types.FindOption) ([]*T, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.find(ctx, matchAll(filter), types.NewFindOptions(opts...), nil)
}

func (r *baseRepositoryImpl[T, ID, PT]) GetPaging(ctx context.Context, page, pageSize int, filter interface{}, opts ...types.FindOption) ([]*T, error) {
	if r.err != nil {
		return nil, r.err
	}
	fo := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	return r.find(ctx, matchAll(filter), types.NewFindOptions(opts...), fo)
}

func (r *baseRepositoryImpl[T, ID, PT]) GetPagination(ctx context.Context, page, pageSize int, filter interface{}, opts ...types.FindOption) (*types.Pagination[T], error) {
	if r.err != nil {
		return nil, r.err
	}
	page, pageSize = pagination.Normalize(page, pageSize)
	o := types.NewFindOptions(opts...)

	pipeline := pagination.Pipeline(filter, o.Sort, o.Projection, page, pageSize)
	cursor, err := r.Collection(o.ReadSecondary).Aggregate(ctx, pipeline,
		options.Aggregate().SetAllowDiskUse(o.AllowDiskUse))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", r.storage, err)
	}
	defer cursor.Close(ctx)

	var raw bson.Raw
	if cursor.Next(ctx) {
		raw = cursor.Current
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", r.storage, err)
	}
	return pagination.Build[T](raw, page, pageSize)
}

func (r *baseRepositoryImpl[T, ID, PT]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultPageSize)
	}
	return r.GetPagination(ctx, pageRequest.GetPage(), pageRequest.GetPageSize(),
		pageRequest.GetFilter(), pageRequest.GetOptions()...)
}

func (r *baseRepositoryImpl[T, ID, PT]) GetCount(ctx context.Context, filter interface{}, opts ...types.FindOption) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	o := types.NewFindOptions(opts...)
	count, err := r.Collection(o.ReadSecondary).CountDocuments(ctx, matchAll(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.storage, err)
	}
	return count, nil
}

// Scroll walks every match with a no-timeout cursor and hands each server
// batch to fn. Errors are logged and dropped under ScrollSuppress and
// returned under ScrollPropagate.
func (r *baseRepositoryImpl[T, ID, PT]) Scroll(ctx context.Context, filter interface{}, pageSize int, fn func([]*T) error, opts ...types.FindOption) error {
	const op = "Scroll"
	if r.err != nil {
		return r.err
	}
	if filter == nil {
		return types.InvalidArgument(op, "filter", "filter must not be nil")
	}
	if fn == nil {
		return types.InvalidArgument(op, "fn", "callback must not be nil")
	}
	if pageSize < 1 {
		pageSize = DefaultScrollSize
	}

	o := types.NewFindOptions(opts...)
	policy := r.scrollPolicy
	if o.ScrollPolicy != nil {
		policy = *o.ScrollPolicy
	}

	err := r.scroll(ctx, filter, pageSize, fn, o)
	if err == nil || policy == types.ScrollPropagate {
		return err
	}
	r.logger.Warn("scroll stopped early", "collection", r.storage, "error", err)
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) scroll(ctx context.Context, filter interface{}, pageSize int, fn func([]*T) error, o *types.FindOptions) (err error) {
	batchSize := int32(math.MaxInt32)
	if pageSize < math.MaxInt32 {
		batchSize = int32(pageSize)
	}
	fo := options.Find().SetNoCursorTimeout(true).SetBatchSize(batchSize)
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}
	if len(o.Sort) > 0 {
		fo.SetSort(o.Sort)
	}

	cursor, err := r.Collection(o.ReadSecondary).Find(ctx, filter, fo)
	if err != nil {
		return fmt.Errorf("scroll %s: %w", r.storage, err)
	}
	defer func() {
		if cerr := cursor.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = fmt.Errorf("close cursor: %w", cerr)
		}
	}()

	batch := make([]*T, 0, min(pageSize, DefaultScrollSize))
	for cursor.Next(ctx) {
		doc := new(T)
		if err := cursor.Decode(doc); err != nil {
			return fmt.Errorf("decode %s: %w", r.storage, err)
		}
		batch = append(batch, doc)
		if cursor.RemainingBatchLength() == 0 {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]*T, 0, len(batch))
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("scroll %s: %w", r.storage, err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) Add(ctx context.Context, doc *T) error {
	const op = "Add"
	if r.err != nil {
		return r.err
	}
	if doc == nil {
		return types.InvalidArgument(op, "entity", "entity must not be nil")
	}
	if err := r.prepare(ctx, op, []*T{doc}, true); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return r.insertError(err)
	}
	return nil
}

// AddMany checks every entity before the first write and reserves all
// missing integer identities with one allocation.
func (r *baseRepositoryImpl[T, ID, PT]) AddMany(ctx context.Context, docs []*T) error {
	const op = "AddMany"
	if r.err != nil {
		return r.err
	}
	if docs == nil {
		return types.InvalidArgument(op, "entities", "entities must not be nil")
	}
	if len(docs) == 0 {
		return nil
	}
	if err := r.prepare(ctx, op, docs, true); err != nil {
		return err
	}

	models := make([]interface{}, len(docs))
	for i, doc := range docs {
		models[i] = doc
	}
	if _, err := r.collection.InsertMany(ctx, models); err != nil {
		return r.insertError(err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) Update(ctx context.Context, doc *T, updatedBy int64, fields ...update.Field) error {
	const op = "Update"
	if r.err != nil {
		return r.err
	}
	if doc == nil {
		return types.InvalidArgument(op, "entity", "entity must not be nil")
	}
	if updatedBy == 0 {
		return types.InvalidArgument(op, "updatedBy", "actor must be non-zero")
	}

	e := PT(doc)
	audit := e.GetAudit()
	if isZero(e.GetID()) {
		if audit.UpdatedBy == 0 {
			audit.UpdatedBy = updatedBy
		}
		if audit.CreatedBy == 0 {
			audit.CreatedBy = updatedBy
		}
		return r.Add(ctx, doc)
	}

	now := entity.Now()
	if len(fields) == 0 {
		// The replacement carries the creation fields, so they must be intact.
		if audit.CreatedBy == 0 {
			return types.InvariantViolation(op, entity.FieldCreatedBy)
		}
		if audit.CreatedAt.IsZero() {
			return types.InvariantViolation(op, entity.FieldCreatedAt)
		}
		audit.UpdatedBy = updatedBy
		if err := audit.Touch(op, now, false); err != nil {
			return err
		}
		if _, err := r.collection.ReplaceOne(ctx, idFilter(e.GetID()), doc); err != nil {
			return fmt.Errorf("replace %s: %w", r.storage, err)
		}
		return nil
	}

	set, actor, err := partialUpdate(op, fields, updatedBy, now)
	if err != nil {
		return err
	}
	audit.UpdatedBy = actor
	audit.UpdatedAt = now
	if _, err := r.collection.UpdateOne(ctx, idFilter(e.GetID()), set); err != nil {
		return fmt.Errorf("update %s: %w", r.storage, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) Delete(ctx context.Context, doc *T, deletedBy int64) error {
	const op = "Delete"
	if r.err != nil {
		return r.err
	}
	if doc == nil {
		return types.InvalidArgument(op, "entity", "entity must not be nil")
	}
	e := PT(doc)
	if isZero(e.GetID()) {
		return types.InvalidArgument(op, entity.FieldID, "identity is required")
	}
	if deletedBy == 0 {
		return types.InvalidArgument(op, "deletedBy", "actor must be non-zero")
	}

	now := entity.Now()
	if _, err := r.collection.UpdateOne(ctx, idFilter(e.GetID()), softDelete(now, deletedBy)); err != nil {
		return fmt.Errorf("soft delete %s: %w", r.storage, err)
	}
	audit := e.GetAudit()
	audit.IsDeleted = true
	audit.UpdatedAt = now
	audit.UpdatedBy = deletedBy
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) DeleteByID(ctx context.Context, id ID, deletedBy int64) error {
	const op = "DeleteByID"
	if r.err != nil {
		return r.err
	}
	if isZero(id) {
		return types.InvalidArgument(op, entity.FieldID, "identity is required")
	}
	if deletedBy == 0 {
		return types.InvalidArgument(op, "deletedBy", "actor must be non-zero")
	}
	if _, err := r.collection.UpdateOne(ctx, idFilter(id), softDelete(entity.Now(), deletedBy)); err != nil {
		return fmt.Errorf("soft delete %s: %w", r.storage, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) DeleteByIDs(ctx context.Context, ids []ID, deletedBy int64) error {
	const op = "DeleteByIDs"
	if r.err != nil {
		return r.err
	}
	if ids == nil {
		return types.InvalidArgument(op, "ids", "ids must not be nil")
	}
	if deletedBy == 0 {
		return types.InvalidArgument(op, "deletedBy", "actor must be non-zero")
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.collection.UpdateMany(ctx, inFilter(ids), softDelete(entity.Now(), deletedBy)); err != nil {
		return fmt.Errorf("soft delete %s: %w", r.storage, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) HardDelete(ctx context.Context, doc *T) error {
	const op = "HardDelete"
	if r.err != nil {
		return r.err
	}
	if doc == nil {
		return types.InvalidArgument(op, "entity", "entity must not be nil")
	}
	return r.hardDeleteByID(ctx, op, PT(doc).GetID())
}

func (r *baseRepositoryImpl[T, ID, PT]) HardDeleteByID(ctx context.Context, id ID) error {
	if r.err != nil {
		return r.err
	}
	return r.hardDeleteByID(ctx, "HardDeleteByID", id)
}

func (r *baseRepositoryImpl[T, ID, PT]) hardDeleteByID(ctx context.Context, op string, id ID) error {
	if isZero(id) {
		return types.InvalidArgument(op, entity.FieldID, "identity is required")
	}
	if _, err := r.collection.DeleteOne(ctx, idFilter(id)); err != nil {
		return fmt.Errorf("delete %s: %w", r.storage, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) HardDeleteByIDs(ctx context.Context, ids []ID) error {
	const op = "HardDeleteByIDs"
	if r.err != nil {
		return r.err
	}
	if ids == nil {
		return types.InvalidArgument(op, "ids", "ids must not be nil")
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.collection.DeleteMany(ctx, inFilter(ids)); err != nil {
		return fmt.Errorf("delete %s: %w", r.storage, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) NextID(ctx context.Context) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.allocator.Next(ctx, r.sequence)
}

func (r *baseRepositoryImpl[T, ID, PT]) NextIDs(ctx context.Context, n int) ([]int64, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.allocator.Allocate(ctx, r.sequence, n)
}

func (r *baseRepositoryImpl[T, ID, PT]) CheckData(ctx context.Context, doc *T, adding bool) error {
	const op = "CheckData"
	if r.err != nil {
		return r.err
	}
	if doc == nil {
		return types.InvalidArgument(op, "entity", "entity must not be nil")
	}
	return r.prepare(ctx, op, []*T{doc}, adding)
}

// prepare validates the actors of every document and rejects repeated
// pointers, then assigns missing
// identities, then stamps the audit times. A failure in the first step
// leaves the documents and the counter untouched.
func (r *baseRepositoryImpl[T, ID, PT]) prepare(ctx context.Context, op string, docs []*T, adding bool) error {
	seen := make(map[*T]int, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return types.InvalidArgument(op, "entities", "element %d is nil", i)
		}
		if j, dup := seen[doc]; dup {
			return types.InvalidArgument(op, "entities", "element %d repeats element %d", i, j)
		}
		seen[doc] = i
		if err := PT(doc).GetAudit().Check(op, adding); err != nil {
			return err
		}
	}
	if err := r.assignIdentities(ctx, op, docs); err != nil {
		return err
	}
	now := entity.Now()
	for _, doc := range docs {
		if err := PT(doc).GetAudit().Touch(op, now, adding); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T, ID, PT]) assignIdentities(ctx context.Context, op string, docs []*T) error {
	switch r.kind {
	case entity.KindString:
		for _, doc := range docs {
			e := PT(doc)
			if !isZero(e.GetID()) {
				continue
			}
			id, ok := any(entity.NewStringID()).(ID)
			if !ok {
				return types.Configuration(op, "string identity kind with %T identities", e.GetID())
			}
			e.SetID(id)
		}
	case entity.KindObject:
		for _, doc := range docs {
			if isZero(PT(doc).GetID()) {
				return types.InvalidArgument(op, entity.FieldID, "object identity must be supplied")
			}
		}
	case entity.KindNumber:
		var pending []PT
		for _, doc := range docs {
			if e := PT(doc); isZero(e.GetID()) {
				pending = append(pending, e)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		ids, err := r.allocator.Allocate(ctx, r.sequence, len(pending))
		if err != nil {
			return err
		}
		for i, e := range pending {
			id, ok := any(ids[i]).(ID)
			if !ok {
				return types.Configuration(op, "integer identity kind with %T identities", e.GetID())
			}
			e.SetID(id)
		}
	default:
		return types.Configuration(op, "unsupported identity kind %s", r.kind)
	}
	return nil
}

// insertError wraps an insert failure. A duplicate _id on an integer
// identity means the counter is behind the collection, which is logged.
func (r *baseRepositoryImpl[T, ID, PT]) insertError(err error) error {
	if database.IsDuplicateKey(err) {
		r.logger.Warn("insert collided with an existing identity",
			"collection", r.storage, "sequence", r.sequence, "kind", r.kind)
	}
	return fmt.Errorf("insert %s: %w", r.storage, err)
}

func isZero[ID comparable](id ID) bool {
	var zero ID
	return id == zero
}

func idFilter(id interface{}) bson.D {
	return bson.D{{Key: entity.FieldID, Value: id}}
}

func inFilter[ID comparable](ids []ID) bson.D {
	return bson.D{{Key: entity.FieldID, Value: bson.D{{Key: "$in", Value: ids}}}}
}

func matchAll(filter interface{}) interface{} {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

// partialUpdate renders fields as a $set that also writes the audit fields.
// A named updated_by is kept when non-zero; a named updated_at is replaced
// by now. It returns the actor that ends up in updated_by.
func partialUpdate(op string, fields []update.Field, updatedBy int64, now time.Time) (bson.D, int64, error) {
	fs := append(update.Fields(nil), fields...)
	actor := updatedBy
	if f, ok := fs.Get(entity.FieldUpdatedBy); ok {
		v, isInt := f.Value().(int64)
		if !isInt || v == 0 {
			return nil, 0, types.InvariantViolation(op, entity.FieldUpdatedBy)
		}
		actor = v
	} else {
		fs = append(fs, update.Int64(entity.FieldUpdatedBy, updatedBy))
	}
	fs = append(fs, update.Time(entity.FieldUpdatedAt, now))
	return fs.Document(), actor, nil
}

func softDelete(now time.Time, by int64) bson.D {
	return update.Fields{
		update.Bool(entity.FieldIsDeleted, true),
		update.Time(entity.FieldUpdatedAt, now),
		update.Int64(entity.FieldUpdatedBy, by),
	}.Document()
}

func chunk[ID any](ids []ID, size int) [][]ID {
	chunks := make([][]ID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func (r *baseRepositoryImpl[T, ID, PT]) find(ctx context.Context, filter interface{}, o *types.FindOptions, fo *options.FindOptions) ([]*T, error) {
	if fo == nil {
		fo = options.Find()
	}
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}
	if len(o.Sort) > 0 {
		fo.SetSort(o.Sort)
	}
	if o.AllowDiskUse {
		fo.SetAllowDiskUse(true)
	}

	cursor, err := r.Collection(o.ReadSecondary).Find(ctx, filter, fo)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.storage, err)
	}
	items := make([]*T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.storage, err)
	}
	return items, nil
}
