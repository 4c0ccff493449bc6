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

package database

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tomoncle/mongokit/sequence"
	"github.com/tomoncle/mongokit/sequence/sqlstore"
)

var (
	globalMu        sync.RWMutex
	globalFactory   *BaseDatabaseFactory
	globalConfig    *Config
	globalAllocator *sequence.Allocator
	globalSQLStore  *sqlstore.Store
	DB              *mongo.Database
)

// GetDatabase returns the global database.
func GetDatabase() *mongo.Database {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetDatabase()
	}
	return DB
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetAllocator returns the global sequence allocator built by InitDB.
func GetAllocator() *sequence.Allocator {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalAllocator
}

// InitDB connects the global database and builds the sequence allocator
// selected by cfg.SequenceConfig.
func InitDB(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := manager.GetDatabase()
	overrideSequenceFromEnv(&cfg.SequenceConfig)
	store, sqlStore, err := NewCounterStore(ctx, db, cfg.SequenceConfig, factory.logger)
	if err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize sequence store: %w", err)
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalFactory = factory
	globalConfig = cfg
	globalAllocator = sequence.NewAllocator(store, factory.logger)
	globalSQLStore = sqlStore
	DB = db
	return db, nil
}

// NewCounterStore builds the counter store named by cfg.Backend. A SQL store
// is returned separately so the caller can close it.
func NewCounterStore(ctx context.Context, db *mongo.Database, cfg SequenceConfig, logger Logger) (sequence.CounterStore, *sqlstore.Store, error) {
	switch cfg.Backend {
	case "", SequenceBackendMongo:
		if db == nil {
			return nil, nil, fmt.Errorf("mongo sequence backend needs a database")
		}
		return sequence.NewMongoStore(db, cfg.Collection), nil, nil
	case SequenceBackendPostgres, SequenceBackendMySQL, SequenceBackendSQLite:
		sqlCfg := cfg.SQL
		sqlCfg.Type = cfg.Backend
		store, err := sqlstore.Open(sqlCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sequence backend: %s", cfg.Backend)
	}
}

// GetConfig returns the configuration passed to InitDB.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// CloseDB closes the global connection and any SQL counter store.
func CloseDB() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	var err error
	if globalSQLStore != nil {
		err = globalSQLStore.Close()
		globalSQLStore = nil
	}
	if globalFactory != nil {
		if cerr := globalFactory.Close(); cerr != nil {
			err = cerr
		}
	}
	globalAllocator = nil
	DB = nil
	return err
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global connection pool statistics.
func GetDatabaseStats() *DBStats {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}
