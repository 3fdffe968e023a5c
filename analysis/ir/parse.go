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

package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseType parses the textual form of a type as printed by Type.String, e.g. "i32", "i8*", "[4 x i32]",
// "{i32, i8*}", "void (i32, ...)" or "%struct.FILE". Named types are resolved with named; a name that named
// does not know is an opaque type. named may be nil.
func ParseType(s string, named map[string]*Type) (*Type, error) {
	p := &typeParser{src: s, named: named}
	t, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("invalid type %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("invalid type %q: trailing %q", s, p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src   string
	pos   int
	named map[string]*Type
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *typeParser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == '%' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (*Type, error) {
	t, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			t = PointerTo(t)
		case '(':
			p.pos++
			t, err = p.parseSignature(t)
			if err != nil {
				return nil, err
			}
		default:
			return t, nil
		}
	}
}

func (p *typeParser) parseSignature(ret *Type) (*Type, error) {
	fn := FuncOf(ret)
	if p.peek() == ')' {
		p.pos++
		return fn, nil
	}
	for {
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			fn.Variadic = true
		} else {
			param, err := p.parse()
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return fn, nil
		default:
			return nil, fmt.Errorf("unterminated parameter list at offset %d", p.pos)
		}
	}
}

func (p *typeParser) parseBase() (*Type, error) {
	switch p.peek() {
	case '[':
		p.pos++
		n, err := strconv.Atoi(p.word())
		if err != nil {
			return nil, fmt.Errorf("array length: %w", err)
		}
		if p.word() != "x" {
			return nil, fmt.Errorf("expected 'x' in array type at offset %d", p.pos)
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return ArrayOf(n, elem), nil
	case '{':
		p.pos++
		st := StructOf()
		if p.peek() == '}' {
			p.pos++
			return st, nil
		}
		for {
			field, err := p.parse()
			if err != nil {
				return nil, err
			}
			st.Fields = append(st.Fields, field)
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if err := p.expect('}'); err != nil {
				return nil, err
			}
			return st, nil
		}
	}
	w := p.word()
	switch {
	case w == "":
		return nil, fmt.Errorf("expected a type at offset %d", p.pos)
	case w == "void":
		return Void, nil
	case w == "half":
		return FloatType(16), nil
	case w == "float":
		return FloatType(32), nil
	case w == "double":
		return FloatType(64), nil
	case w == "x86_fp80":
		return FloatType(80), nil
	case w == "fp128":
		return FloatType(128), nil
	case strings.HasPrefix(w, "%"):
		name := w[1:]
		if t, ok := p.named[name]; ok {
			return t, nil
		}
		return OpaqueType(name), nil
	case strings.HasPrefix(w, "i"):
		bits, err := strconv.Atoi(w[1:])
		if err != nil || bits <= 0 {
			return nil, fmt.Errorf("bad integer type %q", w)
		}
		return IntType(bits), nil
	}
	return nil, fmt.Errorf("unknown type %q", w)
}
