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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// SortOrder is the direction of a sort key as Mongo expects it.
type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

var _ BaseEnum = Ascending

func (o SortOrder) IsValid() bool { return o == Ascending || o == Descending }

func (o SortOrder) Number() int {
	if !o.IsValid() {
		return IllegalValue
	}
	return int(o)
}

func (o SortOrder) Name() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return IllegalName
	}
}

func (o SortOrder) String() string { return o.Name() }

func (o SortOrder) Desc() string {
	switch o {
	case Ascending:
		return "ascending order"
	case Descending:
		return "descending order"
	default:
		return IllegalDesc
	}
}

// ScrollPolicy decides what Scroll does with errors raised while streaming.
type ScrollPolicy int

const (
	// ScrollSuppress logs streaming and callback errors and returns nil.
	ScrollSuppress ScrollPolicy = iota
	// ScrollPropagate stops at the first error and returns it.
	ScrollPropagate
)

var _ BaseEnum = ScrollSuppress

func (p ScrollPolicy) IsValid() bool { return p == ScrollSuppress || p == ScrollPropagate }

func (p ScrollPolicy) Number() int {
	if !p.IsValid() {
		return IllegalValue
	}
	return int(p)
}

func (p ScrollPolicy) Name() string {
	switch p {
	case ScrollSuppress:
		return "suppress"
	case ScrollPropagate:
		return "propagate"
	default:
		return IllegalName
	}
}

func (p ScrollPolicy) String() string { return p.Name() }

func (p ScrollPolicy) Desc() string {
	switch p {
	case ScrollSuppress:
		return "log and swallow errors raised while scrolling"
	case ScrollPropagate:
		return "return the first error raised while scrolling"
	default:
		return IllegalDesc
	}
}
