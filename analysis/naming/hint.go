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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/awslabs/ar-go-vprep/analysis/verifier"
	"github.com/awslabs/ar-go-vprep/internal/funcutil"
)

// NameHint recovers the name of the source variable assigned on a line. The result only affects the names of
// requests, never what the transformations do.
type NameHint interface {
	VariableAt(line int) funcutil.Optional[string]
}

// NoHint never knows a variable name
type NoHint struct{}

// VariableAt implements NameHint
func (NoHint) VariableAt(int) funcutil.Optional[string] { return funcutil.None[string]() }

// SourceLines is a NameHint scanning the text of the source file
type SourceLines struct {
	lines []string
}

// ReadSourceLines reads the source file filename
func ReadSourceLines(filename string) (*SourceLines, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open source file: %w", err)
	}
	defer f.Close()
	return NewSourceLines(f)
}

// NewSourceLines reads source text from r
func NewSourceLines(r io.Reader) (*SourceLines, error) {
	s := &SourceLines{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.lines = append(s.lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read source: %w", err)
	}
	return s, nil
}

// VariableAt returns the variable on the left of the first '=' of line when the right side starts with a call
// to a nondeterministic value generator. Lines are numbered from 1.
func (s *SourceLines) VariableAt(line int) funcutil.Optional[string] {
	if line <= 0 || line > len(s.lines) {
		return funcutil.None[string]()
	}
	return assignedVariable(s.lines[line-1])
}

func assignedVariable(text string) funcutil.Optional[string] {
	pos := strings.Index(text, "=")
	if pos < 0 {
		return funcutil.None[string]()
	}
	lhs := strings.TrimSpace(text[:pos])
	rhs := strings.TrimSpace(text[pos+1:])
	if lhs == "" || !strings.HasPrefix(rhs, verifier.NondetPrefix) {
		return funcutil.None[string]()
	}
	// "unsigned int x" declares x
	words := strings.FieldsFunc(lhs, unicode.IsSpace)
	return funcutil.Some(words[len(words)-1])
}
