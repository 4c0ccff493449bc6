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
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/mongo"
)

// StoreError classifies a failure reported by MongoDB or a SQL counter store.
type StoreError int

const (
	UnknownErr StoreError = iota
	DuplicateKeyErr
	TimeoutErr
	NetworkErr
	NoDocumentsErr
	CancelledErr
)

func (e StoreError) String() string {
	switch e {
	case DuplicateKeyErr:
		return "duplicate_key"
	case TimeoutErr:
		return "timeout"
	case NetworkErr:
		return "network"
	case NoDocumentsErr:
		return "no_documents"
	case CancelledErr:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClassifyError reports whether err came from a store and which class it
// belongs to.
func ClassifyError(err error) (is bool, storeErr StoreError) {
	if err == nil {
		return false, UnknownErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return true, CancelledErr
	case errors.Is(err, context.DeadlineExceeded):
		return true, TimeoutErr
	case errors.Is(err, mongo.ErrNoDocuments):
		return true, NoDocumentsErr
	case mongo.IsDuplicateKeyError(err):
		return true, DuplicateKeyErr
	case mongo.IsTimeout(err):
		return true, TimeoutErr
	case mongo.IsNetworkError(err):
		return true, NetworkErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return true, DuplicateKeyErr
		case 1205, 3024:
			return true, TimeoutErr
		default:
			return true, UnknownErr
		}
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return true, UnknownErr
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "connection reset") {
		return true, NetworkErr
	}
	return false, UnknownErr
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	_, kind := ClassifyError(err)
	return kind == DuplicateKeyErr
}
