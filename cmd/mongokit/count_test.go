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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseFilter(t *testing.T) {
	f, err := parseFilter("")
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = parseFilter(`{"is_deleted": false, "n": {"$gt": 3}}`)
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, bson.E{Key: "is_deleted", Value: false}, f[0])
	assert.Equal(t, "n", f[1].Key)

	_, err = parseFilter(`{"broken"`)
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["health"])
	assert.True(t, names["sequence"])
	assert.True(t, names["count"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
