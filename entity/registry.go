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
	"reflect"
	"sort"
	"strings"
	"sync"
)

var defaultRegistry = newNameRegistry()

// Names overrides where a document type is stored and which counter hands
// out its integer identities. Empty fields fall back, see Resolve.
type Names struct {
	Storage  string
	Sequence string
}

// Resolve returns the collection and counter names for a type called
// typeName: storage is Storage or typeName; sequence is Sequence, then
// Storage, then typeName.
func (n Names) Resolve(typeName string) (storage, sequence string) {
	storage = strings.TrimSpace(n.Storage)
	if storage == "" {
		storage = typeName
	}
	sequence = strings.TrimSpace(n.Sequence)
	if sequence == "" {
		sequence = storage
	}
	return storage, sequence
}

// NameRegistry maps Go document types to their Names.
type NameRegistry interface {
	Register(typ reflect.Type, names Names)
	Lookup(typ reflect.Type) (Names, bool)
	TypeNames() []string
}

type nameRegistry struct {
	names map[reflect.Type]Names
	mutex sync.RWMutex
}

func newNameRegistry() NameRegistry {
	return &nameRegistry{
		names: make(map[reflect.Type]Names),
	}
}

func (r *nameRegistry) Register(typ reflect.Type, names Names) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.names[typ] = names
}

func (r *nameRegistry) Lookup(typ reflect.Type) (Names, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	n, ok := r.names[typ]
	return n, ok
}

// TypeNames lists registered types in a deterministic order.
func (r *nameRegistry) TypeNames() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]string, 0, len(r.names))
	for typ := range r.names {
		result = append(result, typ.String())
	}
	sort.Strings(result)
	return result
}

// Register records the Names of document type T in the default registry.
// Call it from init() next to the type declaration.
func Register[T any](names Names) {
	defaultRegistry.Register(typeOf[T](), names)
}

// Lookup returns the Names registered for T.
func Lookup[T any]() (Names, bool) {
	return defaultRegistry.Lookup(typeOf[T]())
}

// RegisteredTypes lists every type in the default registry.
func RegisteredTypes() []string {
	return defaultRegistry.TypeNames()
}

// TypeName is the last-resort storage and sequence name of T.
func TypeName[T any]() string {
	return typeOf[T]().Name()
}

// ResolveNames resolves T's storage and sequence names. An explicit override
// wins over the registry entry.
func ResolveNames[T any](override *Names) (storage, sequence string) {
	names := Names{}
	if override != nil {
		names = *override
	} else if registered, ok := Lookup[T](); ok {
		names = registered
	}
	return names.Resolve(TypeName[T]())
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
