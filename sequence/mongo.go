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

package sequence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// counter is the persisted shape of one named counter.
type counter struct {
	Name     string `bson:"_id"`
	Sequence int64  `bson:"sequence"`
}

// MongoStore keeps counters as {_id: name, sequence: n} documents.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore keeps counters in db's collection called name, or
// DefaultCollection when name is empty.
func NewMongoStore(db *mongo.Database, name string) *MongoStore {
	if name == "" {
		name = DefaultCollection
	}
	return &MongoStore{collection: db.Collection(name)}
}

// Increment upserts the counter and atomically adds n, returning the new value.
func (s *MongoStore) Increment(ctx context.Context, name string, n int64) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "sequence", Value: 1}})

	var c counter
	err := s.collection.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "sequence", Value: n}}}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("find and update counter: %w", err)
	}
	return c.Sequence, nil
}
