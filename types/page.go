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

package types

import "go.mongodb.org/mongo-driver/bson"

// Page size bounds applied by GetPagination.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// FindOptions collects the optional parts of a read. A nil ScrollPolicy
// leaves the repository default in place.
type FindOptions struct {
	Projection    interface{}
	Sort          bson.D
	ReadSecondary bool
	AllowDiskUse  bool
	ScrollPolicy  *ScrollPolicy
}

// FindOption mutates FindOptions.
type FindOption func(*FindOptions)

// NewFindOptions applies opts over the zero FindOptions.
func NewFindOptions(opts ...FindOption) *FindOptions {
	o := &FindOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithProjection restricts the returned fields.
func WithProjection(projection interface{}) FindOption {
	return func(o *FindOptions) { o.Projection = projection }
}

// WithSort appends a sort key. Keys apply in the order they are given.
func WithSort(field string, order SortOrder) FindOption {
	return func(o *FindOptions) {
		if !order.IsValid() {
			order = Ascending
		}
		o.Sort = append(o.Sort, bson.E{Key: field, Value: int(order)})
	}
}

// WithReadSecondary routes this read to a secondary when one is available.
func WithReadSecondary() FindOption {
	return func(o *FindOptions) { o.ReadSecondary = true }
}

// WithAllowDiskUse lets an aggregation spill to disk.
func WithAllowDiskUse() FindOption {
	return func(o *FindOptions) { o.AllowDiskUse = true }
}

// WithScrollErrors selects how Scroll handles errors.
func WithScrollErrors(policy ScrollPolicy) FindOption {
	return func(o *FindOptions) { o.ScrollPolicy = &policy }
}

// PageRequest describes a page, an optional filter and read options.
type PageRequest struct {
	page     int
	pageSize int
	filter   interface{}
	options  []FindOption
}

// GetPage returns the requested page, clamped to at least 1.
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = DefaultPage
	}
	return p.page
}

// GetPageSize returns the requested size, or DefaultPageSize when it lies
// outside [1, MaxPageSize].
func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 || p.pageSize > MaxPageSize {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() interface{} {
	return p.filter
}

func (p *PageRequest) GetOptions() []FindOption {
	return p.options
}

// NewPageRequest constructs a PageRequest with a filter and read options.
func NewPageRequest(page int, pageSize int, filter interface{}, opts ...FindOption) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, filter: filter, options: opts}
}

// NewDefaultPageRequest constructs a PageRequest matching every document.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil)
}

// Pagination holds one page of items and the count of every match.
type Pagination[T any] struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Items    []T   `json:"data"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Total: 0, Items: make([]T, 0)}
}
