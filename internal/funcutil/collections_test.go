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

import (
	"reflect"
	"strconv"
	"testing"
)

func TestMap(t *testing.T) {
	got := Map([]int{3, 1, 2}, strconv.Itoa)
	if !reflect.DeepEqual(got, []string{"3", "1", "2"}) {
		t.Errorf("unexpected result %v", got)
	}
	if got := Map([]int(nil), strconv.Itoa); len(got) != 0 {
		t.Errorf("expected an empty slice, got %v", got)
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]int{"z": 1, "a": 2, "m": 0})
	if !reflect.DeepEqual(got, []string{"a", "m", "z"}) {
		t.Errorf("unexpected result %v", got)
	}
}

func TestReverse(t *testing.T) {
	a := []int{1, 2, 3, 4}
	Reverse(a)
	if !reflect.DeepEqual(a, []int{4, 3, 2, 1}) {
		t.Errorf("unexpected result %v", a)
	}
}

func TestOptional(t *testing.T) {
	if v := Some(3); v.ValueOr(0) != 3 || !v.IsSome() || v.String() != "3" {
		t.Errorf("unexpected optional %v", v)
	}
	var zero Optional[string]
	if !zero.IsNone() || zero.ValueOr("def") != "def" || zero.String() != "none" {
		t.Errorf("the zero optional should hold nothing")
	}
	if _, ok := None[int]().Get(); ok {
		t.Errorf("expected none")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("Value of none should panic")
		}
	}()
	None[int]().Value()
}
