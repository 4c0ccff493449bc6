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

// Package pagination builds the single-pass aggregation that returns one page
// of documents together with the total number of matches, and shapes its
// output into a types.Pagination.
package pagination

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tomoncle/mongokit/types"
)

// Normalize clamps page to at least 1 and replaces a page size outside
// [1, MaxPageSize] with DefaultPageSize.
func Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = types.DefaultPage
	}
	if pageSize < 1 || pageSize > types.MaxPageSize {
		pageSize = types.DefaultPageSize
	}
	return page, pageSize
}

// Pipeline returns
//
//	[$match] [$sort] [$project]
//	$group   {_id: 0, total: {$sum: 1}, data: {$push: "$$ROOT"}}
//	$project {_id: 0, total: 1, data: {$slice: ["$data", skip, pageSize]}}
//
// Stages in brackets are emitted only when their argument is set. page and
// pageSize are used as given; callers normalize first.
func Pipeline(match interface{}, sort bson.D, projection interface{}, page, pageSize int) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}
	if projection != nil {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	skip := (page - 1) * pageSize
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "data", Value: bson.D{{Key: "$push", Value: "$$ROOT"}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "total", Value: 1},
			{Key: "data", Value: bson.D{{Key: "$slice", Value: bson.A{"$data", skip, pageSize}}}},
		}}},
	)
	return pipeline
}

type result[T any] struct {
	Total int64 `bson:"total"`
	Data  []T   `bson:"data"`
}

// Build decodes the single document produced by Pipeline. A nil or empty raw
// document is the no-match case and yields an empty page.
func Build[T any](raw bson.Raw, page, pageSize int) (*types.Pagination[T], error) {
	p := types.NewDefaultPagination[T](page, pageSize)
	if len(raw) == 0 {
		return p, nil
	}

	var r result[T]
	if err := bson.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode pagination result: %w", err)
	}
	p.Total = r.Total
	if r.Data != nil {
		p.Items = r.Data
	}
	return p, nil
}
