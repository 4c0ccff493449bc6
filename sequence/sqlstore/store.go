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

// Package sqlstore keeps sequence counters in a SQL table through bun, for
// deployments that already run PostgreSQL, MySQL or SQLite next to MongoDB.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// TableName is the table holding one row per counter.
const TableName = "sequence_counters"

// MemoryDB as DBName opens a private in-memory SQLite database.
const MemoryDB = ":memory:"

// Config selects and addresses the SQL server.
type Config struct {
	Type           string        `json:"type" yaml:"type" validate:"omitempty,oneof=postgres postgresql mysql sqlite sqlite3"`
	Host           string        `json:"host" yaml:"host"`
	Port           int           `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Username       string        `json:"username" yaml:"username"`
	Password       string        `json:"password" yaml:"password"`
	DBName         string        `json:"dbname" yaml:"dbname"`
	SSLMode        string        `json:"sslmode" yaml:"sslmode"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	EnableQueryLog bool          `json:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime  time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// Logger receives slow query warnings.
type Logger interface {
	Warn(msg string, fields ...interface{})
}

type counterRow struct {
	bun.BaseModel `bun:"table:sequence_counters"`

	Name     string `bun:"name,pk,type:varchar(191)"`
	Sequence int64  `bun:"sequence,notnull"`
}

// Store implements sequence.CounterStore over a bun database.
type Store struct {
	db *bun.DB
}

// New wraps an open bun database.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects to the server described by cfg.
func Open(cfg Config, logger Logger) (*Store, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	var (
		db  *bun.DB
		err error
	)
	switch cfg.Type {
	case "mysql":
		db, err = openMySQL(cfg)
	case "postgres", "postgresql":
		db, err = openPostgres(cfg)
	case "", "sqlite", "sqlite3":
		db, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if cfg.SlowQueryTime > 0 && logger != nil {
		db.AddQueryHook(&slowQueryHook{slowTime: cfg.SlowQueryTime, logger: logger})
	}
	return New(db), nil
}

func openMySQL(cfg Config) (*bun.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&timeout=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.ConnectTimeout)
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func openPostgres(cfg Config) (*bun.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, sslMode, int(cfg.ConnectTimeout.Seconds()))
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

func openSQLite(cfg Config) (*bun.DB, error) {
	dsn := fmt.Sprintf("%s.db", cfg.DBName)
	if cfg.DBName == MemoryDB {
		dsn = "file::memory:"
	}
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serialize in the pool instead of failing with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB { return s.db }

// EnsureSchema creates the counter table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*counterRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table %s: %w", TableName, err)
	}
	return nil
}

// Increment adds n to the counter called name, creating it when missing,
// and returns the new value. The upsert is a single statement so concurrent
// callers never observe the same value.
func (s *Store) Increment(ctx context.Context, name string, n int64) (int64, error) {
	switch {
	case s.db.HasFeature(feature.InsertOnConflict):
		return s.incrementOnConflict(ctx, name, n)
	case s.db.HasFeature(feature.InsertOnDuplicateKey):
		return s.incrementOnDuplicateKey(ctx, name, n)
	default:
		return 0, fmt.Errorf("dialect %s supports no atomic upsert", s.db.Dialect().Name())
	}
}

func (s *Store) incrementOnConflict(ctx context.Context, name string, n int64) (int64, error) {
	var high int64
	err := s.db.NewRaw(
		"INSERT INTO ? (name, sequence) VALUES (?, ?) "+
			"ON CONFLICT (name) DO UPDATE SET sequence = ?.sequence + excluded.sequence "+
			"RETURNING sequence",
		bun.Ident(TableName), name, n, bun.Ident(TableName),
	).Scan(ctx, &high)
	if err != nil {
		return 0, fmt.Errorf("upsert counter %s: %w", name, err)
	}
	return high, nil
}

// incrementOnDuplicateKey stores the new value in LAST_INSERT_ID, which is
// scoped to the connection, so both statements run on one bun.Conn.
func (s *Store) incrementOnDuplicateKey(ctx context.Context, name string, n int64) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx,
		"INSERT INTO ? (name, sequence) VALUES (?, LAST_INSERT_ID(?)) "+
			"ON DUPLICATE KEY UPDATE sequence = LAST_INSERT_ID(sequence + VALUES(sequence))",
		bun.Ident(TableName), name, n,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert counter %s: %w", name, err)
	}

	var high int64
	if err := conn.QueryRowContext(ctx, "SELECT LAST_INSERT_ID()").Scan(&high); err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return high, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.slowTime {
		h.logger.Warn("slow counter query", "duration", d, "slow_threshold", h.slowTime, "query", event.Query)
	}
}
