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

package naming

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-vprep/internal/irtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const withIDs = `
functions:
  - name: __VERIFIER_make_nondet
    type: "void (i8*, i64, i8*, i32)"
  - name: main
    type: "i32 ()"
    blocks:
      - name: entry
        instrs:
          - {def: x, op: alloca, type: i32}
          - {def: p, op: cast, kind: bitcast, type: "i8*", args: ["%x"]}
          - {op: call, callee: "@__VERIFIER_make_nondet", args: ["%p", "4", 'c"main:x:3"', "5"]}
          - {op: call, callee: "@__VERIFIER_make_nondet", args: ["%p", "4", 'c"main:x:4"', "2"]}
          - {op: ret, args: ["0"]}
`

func TestAllocatorSeedsFromModule(t *testing.T) {
	m := irtest.Parse(t, withIDs)
	a := NewAllocator(m)
	assert.Equal(t, int64(5), a.Last())
	assert.Equal(t, int64(6), a.NextID())
	assert.Equal(t, int64(7), a.NextID())

	// reseeding never moves backwards
	a.Reseed(m)
	assert.Equal(t, int64(8), a.NextID())
}

func TestAllocatorZeroValue(t *testing.T) {
	var a Allocator
	assert.Equal(t, int64(1), a.NextID())
}

func TestNextName(t *testing.T) {
	m := irtest.Parse(t, withIDs)
	a := NewAllocator(m)
	main := m.Function("main")
	assert.Equal(t, "main:uninitialized:0", a.NextName(main, RoleUninitialized, 0))
	assert.Equal(t, "main:n:12", a.NextName(main, "n", 12))
	assert.Equal(t, "main:--:3", a.NextName(main, "", 3))
}

const source = `int main(void) {
    unsigned int n = __VERIFIER_nondet_uint();
    int k;
    k = __VERIFIER_nondet_int();
    int *p = malloc(n);
    if (n == 3) return 1;
    return 0;
}`

func TestSourceLines(t *testing.T) {
	hint, err := NewSourceLines(strings.NewReader(source))
	require.NoError(t, err)
	assert.Equal(t, "n", hint.VariableAt(2).ValueOr(""))
	assert.Equal(t, "k", hint.VariableAt(4).ValueOr(""))
	assert.True(t, hint.VariableAt(3).IsNone())
	assert.True(t, hint.VariableAt(5).IsNone())
	assert.True(t, hint.VariableAt(6).IsNone())
	assert.True(t, hint.VariableAt(0).IsNone())
	assert.True(t, hint.VariableAt(100).IsNone())
}

func TestReadSourceLines(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(name, []byte(source), 0600))
	hint, err := ReadSourceLines(name)
	require.NoError(t, err)
	assert.Equal(t, "n", hint.VariableAt(2).Value())

	_, err = ReadSourceLines(filepath.Join(dir, "missing.c"))
	assert.Error(t, err)
}

func TestNoHint(t *testing.T) {
	var hint NameHint = NoHint{}
	assert.True(t, hint.VariableAt(2).IsNone())
}
