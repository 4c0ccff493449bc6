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
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomoncle/mongokit/database"
)

var withStats bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Ping the server and print the health status as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, _, closeDB, err := connect()
		if err != nil {
			fatal("Error connecting", err)
		}
		defer closeDB()

		out := map[string]interface{}{"health": database.GetHealthStatus(ctx)}
		if withStats {
			out["stats"] = database.GetDatabaseStats()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal("Error encoding status", err)
		}
	},
}

func init() {
	healthCmd.Flags().BoolVar(&withStats, "stats", false, "include connection pool statistics")
	rootCmd.AddCommand(healthCmd)
}
