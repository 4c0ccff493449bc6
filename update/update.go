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

// Package update builds the $set document of a partial update from a
// statically typed list of fields.
package update

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type kind int

const (
	kindNull kind = iota
	kindString
	kindInt64
	kindFloat64
	kindBool
	kindTime
	kindDecimal128
	kindObjectID
	kindStrings
)

// Field is one named value of a partial update. Build it with the typed
// constructors; the zero Field is not valid.
type Field struct {
	name string
	kind kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	d    primitive.Decimal128
	o    primitive.ObjectID
	ss   []string
}

// Name returns the persisted field name.
func (f Field) Name() string { return f.name }

// Value returns the value as it is written to the store.
func (f Field) Value() interface{} {
	switch f.kind {
	case kindString:
		return f.s
	case kindInt64:
		return f.i
	case kindFloat64:
		return f.f
	case kindBool:
		return f.b
	case kindTime:
		return f.t
	case kindDecimal128:
		return f.d
	case kindObjectID:
		return f.o
	case kindStrings:
		if f.ss == nil {
			return bson.A{}
		}
		arr := make(bson.A, len(f.ss))
		for i, s := range f.ss {
			arr[i] = s
		}
		return arr
	default:
		return nil
	}
}

func String(name, v string) Field { return Field{name: name, kind: kindString, s: v} }

func Int(name string, v int) Field { return Field{name: name, kind: kindInt64, i: int64(v)} }

func Int64(name string, v int64) Field { return Field{name: name, kind: kindInt64, i: v} }

func Float64(name string, v float64) Field { return Field{name: name, kind: kindFloat64, f: v} }

func Bool(name string, v bool) Field { return Field{name: name, kind: kindBool, b: v} }

// Time stores v in UTC at millisecond precision.
func Time(name string, v time.Time) Field {
	return Field{name: name, kind: kindTime, t: v.UTC().Truncate(time.Millisecond)}
}

func Decimal128(name string, v primitive.Decimal128) Field {
	return Field{name: name, kind: kindDecimal128, d: v}
}

func ObjectID(name string, v primitive.ObjectID) Field {
	return Field{name: name, kind: kindObjectID, o: v}
}

func Strings(name string, v []string) Field {
	return Field{name: name, kind: kindStrings, ss: append([]string(nil), v...)}
}

// Null sets the field to null.
func Null(name string) Field { return Field{name: name, kind: kindNull} }

// Fields is an ordered partial update.
type Fields []Field

// Has reports whether a field called name is present.
func (fs Fields) Has(name string) bool {
	for _, f := range fs {
		if f.name == name {
			return true
		}
	}
	return false
}

// Get returns the last field called name.
func (fs Fields) Get(name string) (Field, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].name == name {
			return fs[i], true
		}
	}
	return Field{}, false
}

// Names lists the field names in order, duplicates included.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	return names
}

// Set renders the fields as a $set body. A later field with the same name
// replaces the earlier value in place.
func (fs Fields) Set() bson.D {
	doc := make(bson.D, 0, len(fs))
	index := make(map[string]int, len(fs))
	for _, f := range fs {
		if i, ok := index[f.name]; ok {
			doc[i].Value = f.Value()
			continue
		}
		index[f.name] = len(doc)
		doc = append(doc, bson.E{Key: f.name, Value: f.Value()})
	}
	return doc
}

// Document wraps Set in a $set operator.
func (fs Fields) Document() bson.D {
	return bson.D{{Key: "$set", Value: fs.Set()}}
}
