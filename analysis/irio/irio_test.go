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

package irio

import (
	"strings"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
name: sample
types:
  struct.pair: "{i32, i8*}"
globals:
  - name: counter
    type: i32
    init: "i32 3"
  - name: p
    type: "%struct.pair"
    init:
      elems: ["i32 1", "null"]
  - name: ext
    type: "i8*"
  - name: llvm.global_ctors
    type: "[1 x {i32, void ()*, i8*}]"
    linkage: private
    init:
      elems:
        - elems: ["i32 65535", "@init", "null"]
functions:
  - name: init
    type: "void ()"
    blocks:
      - name: entry
        instrs:
          - {op: ret}
  - name: get
    type: "i32 (i32)"
    params: [n]
  - name: main
    type: "i32 (i32, i8**)"
    params: [argc, argv]
    subprogram: {file: main.c, line: 3, scope-line: 4}
    blocks:
      - name: entry
        instrs:
          - {def: x, op: alloca, type: i32, line: 5, col: 7}
          - {def: buf, op: alloca, type: i8, count: "i64 %argc64"}
          - {def: c, op: icmp, kind: sgt, args: ["%argc", "0"], line: 6}
          - {op: condbr, args: ["%c"], succs: [then, done]}
      - name: then
        instrs:
          - {op: store, args: ["1", "%x"], meta: {tbaa: int}}
          - {op: br, succs: [done]}
      - name: done
        instrs:
          - {def: v, op: load, args: ["%x"]}
          - {def: r, op: call, callee: "@get", args: ["%v"], attrs: [nounwind]}
          - {def: s, op: cast, kind: bitcast, type: "i8*", args: ["%x"]}
          - {op: ret, args: ["%r"], line: 9}
`

func TestDecodeUndefinedLocalIsAnError(t *testing.T) {
	_, err := Decode([]byte(sample), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined local %argc64")
}

func fixedSample() string {
	return strings.Replace(sample, `count: "i64 %argc64"`, `count: "i64 8"`, 1)
}

func TestDecodeSample(t *testing.T) {
	m, err := Decode([]byte(fixedSample()), Options{})
	require.NoError(t, err)
	require.NoError(t, m.Verify())

	assert.Equal(t, "sample", m.Name)
	assert.Equal(t, int64(3), m.Global("counter").Init.(*ir.Const).Int)
	assert.False(t, m.Global("ext").HasInitializer())
	assert.Equal(t, ir.PrivateLinkage, m.Global("llvm.global_ctors").Linkage)
	ctors := m.Global("llvm.global_ctors").Init.(*ir.Aggregate)
	assert.Same(t, m.Function("init"), ctors.Elems[0].(*ir.Aggregate).Elems[1])

	main := m.Function("main")
	require.NotNil(t, main)
	assert.True(t, m.Function("get").IsDeclaration())
	assert.Len(t, main.Blocks, 3)
	x := main.Entry().First()
	assert.Equal(t, ir.OpAlloca, x.Op)
	require.NotNil(t, x.Loc)
	assert.Equal(t, 5, x.Loc.Line)
	assert.Equal(t, 7, x.Loc.Col)
	assert.Same(t, main.Subprogram, x.Loc.Scope)
	assert.Equal(t, 4, main.Subprogram.ScopeLine)

	store := main.BlockNamed("then").First()
	assert.True(t, store.Operands[0].Type().Equal(ir.I32))
	assert.Equal(t, "int", store.Meta["tbaa"])

	call := main.BlockNamed("done").Instrs[1]
	assert.Same(t, m.Function("get"), call.CalledFunction())
	assert.Equal(t, []string{"nounwind"}, call.Attrs)
	assert.True(t, call.Type().Equal(ir.I32))
}

func TestRoundTrip(t *testing.T) {
	m, err := Decode([]byte(fixedSample()), Options{})
	require.NoError(t, err)
	b, err := Encode(m)
	require.NoError(t, err)
	m2, err := Decode(b, Options{})
	require.NoError(t, err, string(b))
	assert.Equal(t, m.String(), m2.String())
}

const forwardCall = `
functions:
  - name: main
    type: "i32 ()"
    blocks:
      - name: entry
        instrs:
          - {def: r, op: call, callee: "@helper"}
          - {op: ret, args: ["%r"]}
  - name: helper
    type: "i32 ()"
    blocks:
      - name: entry
        instrs:
          - {op: ret, args: ["7"]}
`

func TestDecodeCallToLaterFunction(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		m, err := Decode([]byte(forwardCall), Options{Lazy: lazy})
		require.NoError(t, err, "lazy: %t", lazy)
		require.NoError(t, m.MaterializeAll())
		require.NoError(t, m.Verify())
		call := m.Function("main").Entry().First()
		assert.Same(t, m.Function("helper"), call.CalledFunction(), "lazy: %t", lazy)
	}
}

func TestRoundTripAppendedDeclaration(t *testing.T) {
	m, err := Decode([]byte(fixedSample()), Options{})
	require.NoError(t, err)
	exit, err := verifier.ExitFunction(m, false)
	require.NoError(t, err)
	ret := m.Function("main").BlockNamed("done").Terminator()
	ir.InsertBefore(ir.NewCall(exit, []ir.Value{ir.ConstInt(ir.I32, 0)}, ""), ret)
	require.NoError(t, m.Verify())

	b, err := Encode(m)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(b), "name: main"), strings.Index(string(b), "name: "+verifier.SilentExit))
	m2, err := Decode(b, Options{})
	require.NoError(t, err, string(b))
	assert.Equal(t, m.String(), m2.String())
	assert.True(t, m2.Function("main").BlockNamed("done").Terminator().Prev().Calls(verifier.SilentExit))
}

func TestLazyBodies(t *testing.T) {
	m, err := Decode([]byte(fixedSample()), Options{Lazy: true})
	require.NoError(t, err)
	main := m.Function("main")
	assert.False(t, main.IsMaterialized())
	assert.False(t, main.IsDeclaration())
	require.NoError(t, m.MaterializeAll())
	assert.True(t, main.IsMaterialized())
	assert.Len(t, main.Blocks, 3)
}

func TestLazyBodyErrorsSurfaceOnMaterialize(t *testing.T) {
	src := `
functions:
  - name: main
    type: "i32 ()"
    blocks:
      - name: entry
        instrs:
          - {op: ret, args: ["%nope"]}
`
	m, err := Decode([]byte(src), Options{Lazy: true})
	require.NoError(t, err)
	err = m.MaterializeAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materializing main")
}

func TestDecodeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"not a function": "functions: [{name: f, type: i32}]",
		"bad linkage":    "globals: [{name: g, type: i32, linkage: weird}]",
		"duplicate":      "globals: [{name: g, type: i32}, {name: g, type: i32}]",
		"bad opcode": `
functions:
  - name: f
    type: "void ()"
    blocks: [{name: entry, instrs: [{op: phi}]}]`,
		"unknown block": `
functions:
  - name: f
    type: "void ()"
    blocks: [{name: entry, instrs: [{op: br, succs: [nowhere]}]}]`,
	} {
		_, err := Decode([]byte(src), Options{})
		assert.Error(t, err, name)
	}
}
