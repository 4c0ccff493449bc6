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
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

var countFilter string

var countCmd = &cobra.Command{
	Use:   "count COLLECTION",
	Short: "Print the exact number of documents matching a filter",
	Long: `Count documents in COLLECTION. --filter takes MongoDB extended JSON,
for example '{"is_deleted": false}'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := parseFilter(countFilter)
		if err != nil {
			fatal("Error parsing filter", err)
		}

		ctx, db, closeDB, err := connect()
		if err != nil {
			fatal("Error connecting", err)
		}
		defer closeDB()

		n, err := db.Collection(args[0]).CountDocuments(ctx, filter)
		if err != nil {
			fatal("Error counting", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
	},
}

func parseFilter(s string) (bson.D, error) {
	if s == "" {
		return bson.D{}, nil
	}
	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func init() {
	countCmd.Flags().StringVarP(&countFilter, "filter", "f", "", "extended JSON filter")
	rootCmd.AddCommand(countCmd)
}
