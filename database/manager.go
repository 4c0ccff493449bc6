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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	client          *mongo.Client
	database        *mongo.Database
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{}
	pool            *poolStats
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by the
// official driver. If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		healthStatus: &HealthStatus{},
		pool:         &poolStats{},
	}
}

// errManagerStopped is returned by a health-loop reconnect that lost the race
// with Disconnect.
var errManagerStopped = errors.New("database manager disconnected")

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.connectLocked(ctx)
}

// connectLocked must be called with mu held.
func (dm *defaultDatabaseManager) connectLocked(ctx context.Context) error {
	if dm.connected && dm.client != nil {
		return nil
	}

	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	client, err := mongo.Connect(ctx, dm.clientOptions())
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctxTimeout, readpref.Primary()); err != nil {
		dm.lastError = err
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.client = client
	dm.database = client.Database(dm.config.Database)
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected successfully:", "host", dm.config.Host, "database", dm.config.Database)
	}
	return nil
}

func (dm *defaultDatabaseManager) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(dm.config.ConnectionURI()).
		SetConnectTimeout(dm.config.ConnectTimeout).
		SetPoolMonitor(dm.pool.monitor())

	if dm.config.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(dm.config.ServerSelectionTimeout)
	}
	if dm.config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(dm.config.MaxPoolSize)
	}
	if dm.config.MinPoolSize > 0 {
		opts.SetMinPoolSize(dm.config.MinPoolSize)
	}
	if dm.config.EnableCommandLog || dm.config.SlowCommandTime > 0 {
		opts.SetMonitor(NewCommandHook(CommandHookOptions{
			Enabled:  dm.config.EnableCommandLog,
			SlowTime: dm.config.SlowCommandTime,
		}).Monitor())
	}
	return opts
}

// Disconnect stops the health check loop and closes the client.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopHealthCheck != nil {
		close(dm.stopHealthCheck)
		dm.stopHealthCheck = nil
	}
	return dm.closeClient()
}

// closeClient must be called with mu held.
func (dm *defaultDatabaseManager) closeClient() error {
	if dm.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := dm.client.Disconnect(ctx)
	dm.client = nil
	dm.database = nil
	dm.connected = false

	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	return dm.reconnect(ctx, nil)
}

// reconnect replaces the client under one lock. When stop is given and has
// been closed by Disconnect, nothing is reopened.
func (dm *defaultDatabaseManager) reconnect(ctx context.Context, stop <-chan struct{}) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if stop != nil {
		select {
		case <-stop:
			return errManagerStopped
		default:
		}
	}
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}
	if err := dm.closeClient(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.connectLocked(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	client := dm.client
	dm.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("database not connected")
	}
	return client.Ping(ctx, readpref.Primary())
}

func (dm *defaultDatabaseManager) GetClient() *mongo.Client {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.client
}

func (dm *defaultDatabaseManager) GetDatabase() *mongo.Database {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.database
}

// Collection returns the named collection of the configured database, or nil
// when not connected.
func (dm *defaultDatabaseManager) Collection(name string) *mongo.Collection {
	db := dm.GetDatabase()
	if db == nil {
		return nil
	}
	return db.Collection(name)
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.RLock()
	client := dm.client
	connected := dm.connected
	dm.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     connected,
		MaxPoolSize:   dm.config.MaxPoolSize,
	}

	if client == nil {
		status.Healthy = false
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := client.Ping(ctxTimeout, readpref.Primary())
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := dm.pool.snapshot()
	status.ActiveConns = stats.InUse
	status.OpenConns = stats.OpenConns

	dm.mu.Lock()
	dm.lastError = err
	dm.healthStatus = status
	dm.lastHealthCheck = start
	dm.mu.Unlock()

	return status
}

// startHealthCheck must be called with mu held.
func (dm *defaultDatabaseManager) startHealthCheck() {
	if dm.stopHealthCheck != nil {
		return
	}
	stop := make(chan struct{})
	dm.stopHealthCheck = stop

	go func() {
		ticker := time.NewTicker(dm.config.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := dm.HealthCheck(ctx)
				cancel()
				if !status.Healthy && dm.config.EnableReconnect {
					dm.handleReconnect(stop)
				}

			case <-stop:
				return
			}
		}
	}()
}

func (dm *defaultDatabaseManager) handleReconnect(stop <-chan struct{}) {
	dm.mu.Lock()
	if dm.reconnectTries >= dm.config.MaxReconnectTries {
		dm.mu.Unlock()
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.config.MaxReconnectTries)
		}
		return
	}
	dm.reconnectTries++
	try := dm.reconnectTries
	dm.mu.Unlock()

	if dm.logger != nil {
		dm.logger.Info("Starting database reconnect", "try", try)
	}

	select {
	case <-time.After(dm.config.ReconnectInterval):
	case <-stop:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
	defer cancel()

	if err := dm.reconnect(ctx, stop); err != nil {
		if errors.Is(err, errManagerStopped) {
			return
		}
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", try)
		}
	} else if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded")
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	stats := dm.pool.snapshot()
	stats.MaxPoolSize = dm.config.MaxPoolSize
	return stats
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

// poolStats counts connection pool events reported by the driver.
type poolStats struct {
	open             atomic.Int64
	inUse            atomic.Int64
	checkoutFailures atomic.Int64
	cleared          atomic.Int64
}

func (p *poolStats) monitor() *event.PoolMonitor {
	return &event.PoolMonitor{Event: p.observe}
}

func (p *poolStats) observe(e *event.PoolEvent) {
	switch e.Type {
	case event.ConnectionCreated:
		p.open.Add(1)
	case event.ConnectionClosed:
		p.open.Add(-1)
	case event.GetSucceeded:
		p.inUse.Add(1)
	case event.ConnectionReturned:
		p.inUse.Add(-1)
	case event.GetFailed:
		p.checkoutFailures.Add(1)
	case event.PoolCleared:
		p.cleared.Add(1)
	}
}

func (p *poolStats) snapshot() *DBStats {
	open, inUse := p.open.Load(), p.inUse.Load()
	return &DBStats{
		OpenConns:        open,
		InUse:            inUse,
		Idle:             max(open-inUse, 0),
		CheckoutFailures: p.checkoutFailures.Load(),
		PoolsCleared:     p.cleared.Load(),
	}
}
