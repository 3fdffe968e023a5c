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

package transform

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Kinds of effects
const (
	EffectDefined       = "defined"
	EffectRemovedCalls  = "removed-calls"
	EffectInternalized  = "internalized"
	EffectNondet        = "nondet"
	EffectRedirected    = "redirected"
	EffectLoopBroken    = "loop-broken"
	EffectSplit         = "split"
	EffectFlattened     = "flattened"
	EffectExit          = "exit"
	EffectConsdes       = "consdes"
	EffectErrorCall     = "error-call"
	EffectLoopRemoved   = "loop-removed"
	EffectSkipped       = "skipped"
	EffectIndirectRisky = "indirect-call"
)

// Effect is one top-level change, or one skipped site, of a pass
type Effect struct {
	Pass   string `yaml:"pass"`
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
	Detail string `yaml:"detail,omitempty"`
}

// PassResult tells whether a pass changed the module
type PassResult struct {
	Name    string `yaml:"name"`
	Changed bool   `yaml:"changed"`
}

// Report is the side log of a pipeline run. It is only used for diagnostics.
type Report struct {
	Module  string       `yaml:"module"`
	Passes  []PassResult `yaml:"passes"`
	Effects []Effect     `yaml:"effects"`
}

// Count returns the number of effects of the given kind
func (r *Report) Count(kind string) int {
	n := 0
	for _, e := range r.Effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Effect records a change made to target and logs it at Info level
func (c *Context) Effect(kind, target, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	c.Report.Effects = append(c.Report.Effects, Effect{Pass: c.pass, Kind: kind, Target: target, Detail: detail})
	c.Log.Infof("%s: %s", target, detail)
}

// Skip records a site the pass could not handle and logs it at Warn level
func (c *Context) Skip(target, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	c.Report.Effects = append(c.Report.Effects,
		Effect{Pass: c.pass, Kind: EffectSkipped, Target: target, Detail: detail})
	c.Log.Warnf("%s: %s", target, detail)
}

// WriteReport writes the report in a new report-*.yaml file of dir and returns the file name
func WriteReport(r *Report, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "report-*.yaml")
	if err != nil {
		return "", fmt.Errorf("could not create report file: %w", err)
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("could not write report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
