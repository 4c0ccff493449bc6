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
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/mongokit/sequence"
	"github.com/tomoncle/mongokit/sequence/sqlstore"
)

// AbstractDatabaseManager defines the operations for managing a MongoDB
// connection and reporting its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetClient() *mongo.Client
	GetDatabase() *mongo.Database
	Collection(name string) *mongo.Collection
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the server.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int64         `json:"active_conns"`
	OpenConns     int64         `json:"open_conns"`
	MaxPoolSize   uint64        `json:"max_pool_size"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats is a snapshot of the driver connection pool counters.
type DBStats struct {
	MaxPoolSize      uint64 `json:"max_pool_size"`
	OpenConns        int64  `json:"open_conns"`
	InUse            int64  `json:"in_use"`
	Idle             int64  `json:"idle"`
	CheckoutFailures int64  `json:"checkout_failures"`
	PoolsCleared     int64  `json:"pools_cleared"`
}

// ConnectionConfig describes how to reach MongoDB and tune the client.
type ConnectionConfig struct {
	URI                    string        `json:"uri" yaml:"uri" validate:"omitempty,startswith=mongodb"`
	Host                   string        `json:"host" yaml:"host" validate:"required_without=URI"`
	Port                   int           `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Username               string        `json:"username" yaml:"username"`
	Password               string        `json:"password" yaml:"password"`
	Database               string        `json:"database" yaml:"database" validate:"required"`
	AuthSource             string        `json:"auth_source" yaml:"auth_source"`
	ReplicaSet             string        `json:"replica_set" yaml:"replica_set"`
	MaxPoolSize            uint64        `json:"max_pool_size" yaml:"max_pool_size"`
	MinPoolSize            uint64        `json:"min_pool_size" yaml:"min_pool_size" validate:"ltefield=MaxPoolSize"`
	ConnectTimeout         time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout" yaml:"server_selection_timeout"`
	HealthCheckInterval    time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	EnableReconnect        bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval      time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectTries      int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" validate:"gte=0"`
	EnableCommandLog       bool          `json:"enable_command_log" yaml:"enable_command_log"`
	SlowCommandTime        time.Duration `json:"slow_command_time" yaml:"slow_command_time"`
}

// Sequence backends.
const (
	SequenceBackendMongo    = "mongo"
	SequenceBackendPostgres = "postgres"
	SequenceBackendMySQL    = "mysql"
	SequenceBackendSQLite   = "sqlite"
)

// SequenceConfig selects where sequence counters live.
type SequenceConfig struct {
	Backend    string          `json:"backend" yaml:"backend" validate:"omitempty,oneof=mongo postgres mysql sqlite"`
	Collection string          `json:"collection" yaml:"collection"`
	SQL        sqlstore.Config `json:"sql" yaml:"sql"`
}

// Config aggregates connection and sequence settings.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection_config" yaml:"connection_config"`
	SequenceConfig   SequenceConfig   `json:"sequence_config" yaml:"sequence_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Host:                   "127.0.0.1",
		Port:                   27017,
		MaxPoolSize:            100,
		ConnectTimeout:         time.Second * 10,
		ServerSelectionTimeout: time.Second * 10,
		EnableReconnect:        true,
		ReconnectInterval:      time.Second * 5,
		MaxReconnectTries:      3,
		HealthCheckInterval:    time.Minute * 5,
		EnableCommandLog:       false,
		SlowCommandTime:        time.Second * 2,
	}
}

// DefaultConfig returns defaults for every section. Counters live in Mongo.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		SequenceConfig: SequenceConfig{
			Backend:    SequenceBackendMongo,
			Collection: sequence.DefaultCollection,
			SQL:        sqlstore.Config{Type: SequenceBackendSQLite, DBName: "sequences", SSLMode: "disable"},
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tag constraints of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}

// Validate checks the connection section alone.
func (c *ConnectionConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid connection configuration: %w", err)
	}
	return nil
}

// ConnectionURI returns URI when set, otherwise builds
// mongodb://[user:pass@]host:port/database[?authSource=..&replicaSet=..].
func (c *ConnectionConfig) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}

	port := c.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	q := url.Values{}
	if c.AuthSource != "" {
		q.Set("authSource", c.AuthSource)
	}
	if c.ReplicaSet != "" {
		q.Set("replicaSet", c.ReplicaSet)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
