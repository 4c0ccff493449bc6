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

	"github.com/tomoncle/mongokit/database"
)

var sequenceCount int

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Work with sequence counters",
}

var sequenceNextCmd = &cobra.Command{
	Use:   "next NAME",
	Short: "Allocate identities from a counter and print them one per line",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, _, closeDB, err := connect()
		if err != nil {
			fatal("Error connecting", err)
		}
		defer closeDB()

		ids, err := database.GetAllocator().Allocate(ctx, args[0], sequenceCount)
		if err != nil {
			fatal("Error allocating", err)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
	},
}

func init() {
	sequenceNextCmd.Flags().IntVarP(&sequenceCount, "count", "n", 1, "number of identities to allocate")
	sequenceCmd.AddCommand(sequenceNextCmd)
	rootCmd.AddCommand(sequenceCmd)
}
