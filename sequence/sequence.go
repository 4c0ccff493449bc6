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

// Package sequence hands out gap-free, monotonically increasing int64
// identities from named counters kept in a shared store.
//
// A block of n ids is reserved with a single atomic increment of the counter,
// so concurrent callers in any number of processes receive disjoint ranges
// without a lock service. The counter store only needs one operation:
//
//	Increment(ctx, name, n) (high int64, err error)
//
// which adds n to the counter called name, creating it at zero when missing,
// and returns the value after the increment.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomoncle/mongokit/types"
)

// DefaultCollection is where MongoStore keeps its counters.
const DefaultCollection = "Sequence"

// CounterStore is the atomic counter primitive the Allocator depends on.
type CounterStore interface {
	Increment(ctx context.Context, name string, n int64) (int64, error)
}

// Logger is the subset of a logger the Allocator writes to.
type Logger interface {
	Debug(msg string, fields ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// Allocator reserves identity blocks from a CounterStore.
type Allocator struct {
	store  CounterStore
	logger Logger
}

// NewAllocator returns an Allocator over store. A nil logger discards
// allocation logs.
func NewAllocator(store CounterStore, logger Logger) *Allocator {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Allocator{store: store, logger: logger}
}

// Allocate reserves count consecutive ids from the counter called name and
// returns them in ascending order. A count of zero returns an empty slice
// without touching the store.
func (a *Allocator) Allocate(ctx context.Context, name string, count int) ([]int64, error) {
	if a == nil || a.store == nil {
		return nil, types.Configuration("Allocate", "no counter store configured")
	}
	if count < 0 {
		return nil, types.InvalidArgument("Allocate", "count", "must not be negative, got %d", count)
	}
	if count == 0 {
		return []int64{}, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.InvalidArgument("Allocate", "name", "counter name is required")
	}

	high, err := a.store.Increment(ctx, name, int64(count))
	if err != nil {
		return nil, fmt.Errorf("increment counter %s: %w", name, err)
	}

	low := high - int64(count) + 1
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = low + int64(i)
	}
	a.logger.Debug("allocated ids", "sequence", name, "count", count, "from", low, "to", high)
	return ids, nil
}

// Next reserves a single id.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	ids, err := a.Allocate(ctx, name, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}
