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
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentityKind enumerates the identity variants a document may use.
type IdentityKind int

const (
	// KindString is a random token generated at insert when empty.
	KindString IdentityKind = iota + 1
	// KindObject is an opaque ObjectID supplied by the caller.
	KindObject
	// KindNumber is an int64 reserved from the sequence allocator.
	KindNumber
)

func (k IdentityKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Entity is implemented by pointers to structs embedding exactly one of
// StringID, ObjectID or NumberID, and Audit.
type Entity[ID comparable] interface {
	IdentityKind() IdentityKind
	GetID() ID
	SetID(ID)
	GetAudit() *Audit
	sealed()
}

// Document ties a struct type to its pointer so repositories can allocate
// values of T and still call the Entity methods.
type Document[T any, ID comparable] interface {
	*T
	Entity[ID]
}

// StringID is the identity of documents keyed by a generated string.
type StringID struct {
	ID string `bson:"_id" json:"id"`
}

func (StringID) IdentityKind() IdentityKind { return KindString }
func (e StringID) GetID() string             { return e.ID }
func (e *StringID) SetID(id string)          { e.ID = id }
func (StringID) sealed()                     {}

// ObjectID is the identity of documents keyed by a caller supplied ObjectID.
type ObjectID struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`
}

func (ObjectID) IdentityKind() IdentityKind    { return KindObject }
func (e ObjectID) GetID() primitive.ObjectID   { return e.ID }
func (e *ObjectID) SetID(id primitive.ObjectID) { e.ID = id }
func (ObjectID) sealed()                       {}

// NumberID is the identity of documents keyed by an allocated int64.
type NumberID struct {
	ID int64 `bson:"_id" json:"id"`
}

func (NumberID) IdentityKind() IdentityKind { return KindNumber }
func (e NumberID) GetID() int64              { return e.ID }
func (e *NumberID) SetID(id int64)           { e.ID = id }
func (NumberID) sealed()                     {}

// NewStringID returns a random 32 character lowercase hex token.
func NewStringID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// KindOf reports the identity kind declared by T without needing a value.
func KindOf[T any, ID comparable, PT Document[T, ID]]() IdentityKind {
	var v T
	return PT(&v).IdentityKind()
}
