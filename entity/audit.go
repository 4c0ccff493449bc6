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

package entity

import (
	"time"

	"github.com/tomoncle/mongokit/types"
)

// Persisted field names shared by every document.
const (
	FieldID        = "_id"
	FieldCreatedAt = "created_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedAt = "updated_at"
	FieldUpdatedBy = "updated_by"
	FieldIsDeleted = "is_deleted"
)

// Audit holds the write bookkeeping of a document.
type Audit struct {
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	CreatedBy int64     `bson:"created_by" json:"created_by"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	UpdatedBy int64     `bson:"updated_by" json:"updated_by"`
	IsDeleted bool      `bson:"is_deleted" json:"is_deleted"`
}

// GetAudit exposes the embedded Audit through the Entity interface.
func (a *Audit) GetAudit() *Audit { return a }

// Check reports a zero actor on a write: updated_by always, created_by
// when adding.
func (a *Audit) Check(op string, adding bool) error {
	if a.UpdatedBy == 0 {
		return types.InvariantViolation(op, FieldUpdatedBy)
	}
	if adding && a.CreatedBy == 0 {
		return types.InvariantViolation(op, FieldCreatedBy)
	}
	return nil
}

// Touch checks the actor fields a write needs and then stamps the write time.
// On insert created_at takes the same instant as updated_at. Nothing is
// modified when the check fails.
func (a *Audit) Touch(op string, now time.Time, adding bool) error {
	if err := a.Check(op, adding); err != nil {
		return err
	}
	a.UpdatedAt = now
	if adding {
		a.CreatedAt = now
	}
	return nil
}

// Now samples the write clock in UTC at the precision the store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
