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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tomoncle/mongokit/database"
	"github.com/tomoncle/mongokit/utils"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mongokit",
	Short: "Inspect a MongoDB database managed by mongokit",
	Long: `mongokit connects with the same configuration an application uses
(YAML file plus MONGO_* environment overrides) and runs one operation.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			utils.ConfigureLogLevel("debug")
		}
		utils.ConfigureLogOutput(os.Stderr)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout for the whole command")
}

func loadConfig() (*database.Config, error) {
	if configPath == "" {
		return database.DefaultConfig(), nil
	}
	return database.LoadConfig(configPath)
}

// connect initializes the global database and returns a context bounded by
// --timeout. The caller must call the returned cleanup.
func connect() (context.Context, *mongo.Database, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}
	return ctx, db, func() {
		_ = database.CloseDB()
		cancel()
	}, nil
}
