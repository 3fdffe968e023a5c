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

// Package irio reads and writes modules in a YAML format.
//
// A module document lists named types, globals and functions. Function bodies are lists of blocks, each a list
// of instructions. Operands are strings: "%x" names a parameter or an instruction result of the same function,
// "@g" names a global or a function, `c"text"` is a name string, and other literals are written "<type>
// <literal>" where literal is an integer, true, false, null, zeroinitializer or undef. The type may be omitted
// when the position of the operand determines it, e.g. the arguments of a direct call. A local must be defined
// before its first use in block layout order.
package irio

import (
	"gopkg.in/yaml.v3"
)

type moduleDoc struct {
	Name        string        `yaml:"name,omitempty"`
	PointerBits int           `yaml:"pointer-bits,omitempty"`
	Types       yaml.Node     `yaml:"types,omitempty"`
	Globals     []globalDoc   `yaml:"globals,omitempty"`
	Functions   []functionDoc `yaml:"functions,omitempty"`
}

type globalDoc struct {
	Name                  string    `yaml:"name"`
	Type                  string    `yaml:"type"`
	Init                  yaml.Node `yaml:"init,omitempty"`
	Constant              bool      `yaml:"constant,omitempty"`
	ExternallyInitialized bool      `yaml:"externally-initialized,omitempty"`
	Linkage               string    `yaml:"linkage,omitempty"`
}

type functionDoc struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Params     []string       `yaml:"params,omitempty,flow"`
	Linkage    string         `yaml:"linkage,omitempty"`
	Attrs      []string       `yaml:"attrs,omitempty,flow"`
	Subprogram *subprogramDoc `yaml:"subprogram,omitempty"`
	Blocks     yaml.Node      `yaml:"blocks,omitempty"`
}

type subprogramDoc struct {
	File      string `yaml:"file,omitempty"`
	Line      int    `yaml:"line"`
	ScopeLine int    `yaml:"scope-line,omitempty"`
}

type blockDoc struct {
	Name   string     `yaml:"name"`
	Instrs []instrDoc `yaml:"instrs"`
}

type instrDoc struct {
	Def    string            `yaml:"def,omitempty"`
	Op     string            `yaml:"op"`
	Type   string            `yaml:"type,omitempty"`
	Kind   string            `yaml:"kind,omitempty"`
	Callee string            `yaml:"callee,omitempty"`
	Args   []string          `yaml:"args,omitempty,flow"`
	Count  string            `yaml:"count,omitempty"`
	Succs  []string          `yaml:"succs,omitempty,flow"`
	Attrs  []string          `yaml:"attrs,omitempty,flow"`
	Meta   map[string]string `yaml:"meta,omitempty"`
	Line   *int              `yaml:"line,omitempty"`
	Col    int               `yaml:"col,omitempty"`
}

// aggregateDoc is the mapping form of a constant array or struct initializer
type aggregateDoc struct {
	Elems []yaml.Node `yaml:"elems"`
}
