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
	"github.com/tomoncle/mongokit/database"
	"github.com/tomoncle/mongokit/entity"
	"github.com/tomoncle/mongokit/sequence"
	"github.com/tomoncle/mongokit/types"
)

const defaultBatchConcurrency = 4

type config struct {
	names            *entity.Names
	allocator        *sequence.Allocator
	logger           database.Logger
	scrollPolicy     types.ScrollPolicy
	batchConcurrency int
}

// Option configures a repository at construction.
type Option func(*config)

// WithNames overrides the registered storage and sequence names.
func WithNames(names entity.Names) Option {
	return func(c *config) { c.names = &names }
}

// WithAllocator supplies the allocator for integer identities.
func WithAllocator(allocator *sequence.Allocator) Option {
	return func(c *config) { c.allocator = allocator }
}

func WithLogger(logger database.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithScrollPolicy sets the Scroll error policy used when a call does not
// pass types.WithScrollErrors.
func WithScrollPolicy(policy types.ScrollPolicy) Option {
	return func(c *config) { c.scrollPolicy = policy }
}

// WithBatchConcurrency bounds the parallel chunk queries of GetByIDs.
func WithBatchConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{batchConcurrency: defaultBatchConcurrency}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = database.GetLogger()
	}
	return c
}
