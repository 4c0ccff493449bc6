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

// Package validate holds small string and identity predicates shared by the
// repository and the entity contract.
package validate

import (
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxIdentityLength is the longest string identity accepted by IsIdentity.
const MaxIdentityLength = 32

// IsRequired reports whether text is non-empty, optionally after trimming
// surrounding white space.
func IsRequired(text string, trim bool) bool {
	if trim {
		text = strings.TrimSpace(text)
	}
	return text != ""
}

// IsValidLength reports whether text is present and its rune count lies in
// [minLength, maxLength]. A bound of zero or less is not checked.
func IsValidLength(text string, minLength, maxLength int) bool {
	if !IsRequired(text, true) {
		return false
	}
	n := utf8.RuneCountInString(text)
	if minLength > 0 && n < minLength {
		return false
	}
	if maxLength > 0 && n > maxLength {
		return false
	}
	return true
}

// IsIdentity reports whether text can be used as a string document identity.
func IsIdentity(text string) bool {
	return IsValidLength(text, 0, MaxIdentityLength)
}

// IsObjectID reports whether id is set.
func IsObjectID(id primitive.ObjectID) bool {
	return !id.IsZero()
}
