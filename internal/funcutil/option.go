// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package funcutil

import "fmt"

// Optional holds a value or nothing. The zero Optional holds nothing.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an optional holding x
func Some[T any](x T) Optional[T] { return Optional[T]{value: x, ok: true} }

// None returns an optional holding nothing
func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether there is one, in the manner of a map lookup
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// ValueOr returns the value, or def when there is none
func (o Optional[T]) ValueOr(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Value returns the value and panics when there is none
func (o Optional[T]) Value() T {
	if !o.ok {
		panic("funcutil: Value of an empty Optional")
	}
	return o.value
}

func (o Optional[T]) IsSome() bool { return o.ok }

func (o Optional[T]) IsNone() bool { return !o.ok }

func (o Optional[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprintf("%v", o.value)
}
