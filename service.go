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

package mongokit

import (
	"context"
	"sync"

	"github.com/tomoncle/mongokit/database"
	"github.com/tomoncle/mongokit/entity"
	"github.com/tomoncle/mongokit/repository"
	"github.com/tomoncle/mongokit/types"
	"github.com/tomoncle/mongokit/update"
)

// Service is the entry point most callers use: CRUD over one entity type,
// backed by the global connection set up with database.InitDB.
type Service[T any, ID comparable] interface {
	// Get returns one entity by identity, or an error of kind NotFound.
	Get(ctx context.Context, id ID) (*T, error)

	// GetMany returns the entities whose identities are in ids.
	GetMany(ctx context.Context, ids []ID) ([]*T, error)

	// List returns every entity matching filter.
	List(ctx context.Context, filter interface{}, opts ...types.FindOption) ([]*T, error)

	Count(ctx context.Context, filter interface{}) (int64, error)

	// Page returns one page and the total count of matches.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Scroll walks every match in cursor batches.
	Scroll(ctx context.Context, filter interface{}, pageSize int, fn func([]*T) error, opts ...types.FindOption) error

	// Save inserts new entities, assigning identities where needed. Save,
	// Delete and Remove do nothing when given no entities or ids.
	Save(ctx context.Context, models ...*T) error

	// Update rewrites model, or only fields when any are given.
	Update(ctx context.Context, model *T, updatedBy int64, fields ...update.Field) error

	// Delete marks the entities with ids as deleted.
	Delete(ctx context.Context, deletedBy int64, ids ...ID) error

	// Remove deletes the entities with ids from storage.
	Remove(ctx context.Context, ids ...ID) error

	// Repository exposes the underlying repository.
	Repository() (repository.Repository[T, ID], error)
}

type baseServiceImpl[T any, ID comparable, PT entity.Document[T, ID]] struct {
	opts []repository.Option
	repo repository.Repository[T, ID]
	err  error
	once sync.Once
}

// NewService returns a Service whose repository is built on first use from
// the global database and sequence allocator. opts are applied after those
// defaults.
func NewService[T any, ID comparable, PT entity.Document[T, ID]](opts ...repository.Option) Service[T, ID] {
	return &baseServiceImpl[T, ID, PT]{opts: opts}
}

func (s *baseServiceImpl[T, ID, PT]) baseRepo() (repository.Repository[T, ID], error) {
	s.once.Do(func() {
		opts := append([]repository.Option{repository.WithAllocator(database.GetAllocator())}, s.opts...)
		s.repo, s.err = repository.New[T, ID, PT](database.GetDatabase(), opts...)
	})
	return s.repo, s.err
}

func (s *baseServiceImpl[T, ID, PT]) Repository() (repository.Repository[T, ID], error) {
	return s.baseRepo()
}

func (s *baseServiceImpl[T, ID, PT]) Get(ctx context.Context, id ID) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T, ID, PT]) GetMany(ctx context.Context, ids []ID) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetByIDs(ctx, ids)
}

func (s *baseServiceImpl[T, ID, PT]) List(ctx context.Context, filter interface{}, opts ...types.FindOption) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetBy(ctx, filter, opts...)
}

func (s *baseServiceImpl[T, ID, PT]) Count(ctx context.Context, filter interface{}) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.GetCount(ctx, filter)
}

func (s *baseServiceImpl[T, ID, PT]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T, ID, PT]) Scroll(ctx context.Context, filter interface{}, pageSize int, fn func([]*T) error, opts ...types.FindOption) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Scroll(ctx, filter, pageSize, fn, opts...)
}

func (s *baseServiceImpl[T, ID, PT]) Save(ctx context.Context, models ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	switch len(models) {
	case 0:
		return nil
	case 1:
		return repo.Add(ctx, models[0])
	}
	return repo.AddMany(ctx, models)
}

func (s *baseServiceImpl[T, ID, PT]) Update(ctx context.Context, model *T, updatedBy int64, fields ...update.Field) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model, updatedBy, fields...)
}

func (s *baseServiceImpl[T, ID, PT]) Delete(ctx context.Context, deletedBy int64, ids ...ID) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return repo.DeleteByID(ctx, ids[0], deletedBy)
	}
	return repo.DeleteByIDs(ctx, ids, deletedBy)
}

func (s *baseServiceImpl[T, ID, PT]) Remove(ctx context.Context, ids ...ID) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return repo.HardDeleteByID(ctx, ids[0])
	}
	return repo.HardDeleteByIDs(ctx, ids)
}
