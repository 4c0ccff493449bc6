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

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tomoncle/mongokit/types"
	"github.com/tomoncle/mongokit/update"
)

// MaxBatchSize is the largest number of identities sent in one $in query.
const MaxBatchSize = 1000

// DefaultScrollSize is the cursor batch size Scroll uses when none is given.
const DefaultScrollSize = 500

// ReadRepository defines lookups by identity and by filter.
type ReadRepository[T any, ID comparable] interface {
	GetByID(ctx context.Context, id ID, opts ...types.FindOption) (*T, error)

	GetByIDs(ctx context.Context, ids []ID, opts ...types.FindOption) ([]*T, error)

	GetBy(ctx context.Context, filter interface{}, opts ...types.FindOption) ([]*T, error)

	GetCount(ctx context.Context, filter interface{}, opts ...types.FindOption) (int64, error)

	// Scroll streams every match to fn, one cursor batch at a time.
	Scroll(ctx context.Context, filter interface{}, pageSize int, fn func([]*T) error, opts ...types.FindOption) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	// GetPaging returns the documents of one page without a total.
	GetPaging(ctx context.Context, page, pageSize int, filter interface{}, opts ...types.FindOption) ([]*T, error)

	// GetPagination returns one page and the total in a single aggregation.
	GetPagination(ctx context.Context, page, pageSize int, filter interface{}, opts ...types.FindOption) (*types.Pagination[T], error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// WriteRepository defines inserts, partial updates and deletes. Every write
// takes the acting user and refreshes the audit fields.
type WriteRepository[T any, ID comparable] interface {
	Add(ctx context.Context, entity *T) error

	AddMany(ctx context.Context, entities []*T) error

	// Update inserts entity when it has no identity yet. Otherwise it
	// replaces the stored document, or sets only fields when any are given.
	Update(ctx context.Context, entity *T, updatedBy int64, fields ...update.Field) error

	Delete(ctx context.Context, entity *T, deletedBy int64) error

	DeleteByID(ctx context.Context, id ID, deletedBy int64) error

	DeleteByIDs(ctx context.Context, ids []ID, deletedBy int64) error

	HardDelete(ctx context.Context, entity *T) error

	HardDeleteByID(ctx context.Context, id ID) error

	HardDeleteByIDs(ctx context.Context, ids []ID) error
}

// SequenceRepository hands out integer identities from the entity's counter.
type SequenceRepository interface {
	NextID(ctx context.Context) (int64, error)
	NextIDs(ctx context.Context, n int) ([]int64, error)
}

// Repository combines reads, pagination and writes and exposes the
// underlying collections for advanced queries.
type Repository[T any, ID comparable] interface {
	ReadRepository[T, ID]
	PageQueryRepository[T]
	WriteRepository[T, ID]
	SequenceRepository

	// CheckData applies the write invariants to entity without writing it:
	// identity assignment, actor checks and audit timestamps.
	CheckData(ctx context.Context, entity *T, adding bool) error

	Collection(readSecondary bool) *mongo.Collection
	StorageName() string
	SequenceName() string
}
