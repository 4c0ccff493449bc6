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

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrConfiguration marks a repository or allocator that cannot serve the
	// call as configured, e.g. an integer-identity entity without allocator.
	ErrConfiguration = errors.New("mongokit: configuration error")

	// ErrInvalidArgument marks a caller supplied value that is rejected
	// before any I/O: zero identity, nil slice, zero actor, negative size.
	ErrInvalidArgument = errors.New("mongokit: invalid argument")

	// ErrInvariantViolation marks an entity whose audit fields break the
	// write contract. The write is not issued.
	ErrInvariantViolation = errors.New("mongokit: invariant violation")

	// ErrNotFound is returned when a lookup by identity matches nothing.
	ErrNotFound = errors.New("mongokit: document not found")
)

// Error carries the kind of a synchronous failure together with the
// operation and field that caused it.
type Error struct {
	Kind  error
	Op    string
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind.
func NewError(kind error, op, field string, err error) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Err: err}
}

// InvalidArgument is shorthand for an ErrInvalidArgument with a message.
func InvalidArgument(op, field, format string, args ...interface{}) error {
	return NewError(ErrInvalidArgument, op, field, fmt.Errorf(format, args...))
}

// Configuration is shorthand for an ErrConfiguration with a message.
func Configuration(op, format string, args ...interface{}) error {
	return NewError(ErrConfiguration, op, "", fmt.Errorf(format, args...))
}

// InvariantViolation is shorthand for an ErrInvariantViolation on field.
func InvariantViolation(op, field string) error {
	return NewError(ErrInvariantViolation, op, field, fmt.Errorf("%s must be non-zero", field))
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
