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

package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/config"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint; check and update error message if necessary")
	}
}

func TestHintForMissingModule(t *testing.T) {
	errorMsg := "could not read module file: open prog.yaml: no such file or directory"
	validateHint(t, errorMsg, "make sure the path to the module is right")
}

func TestHintForMissingMain(t *testing.T) {
	errorMsg := "internalize-globals: module has no main function"
	validateHint(t, errorMsg, "the module should be a complete program")
}

func TestHintForUnknownPass(t *testing.T) {
	errorMsg := "failed to load config file c.yaml: unknown pass \"inline\" in pipeline"
	validateHint(t, errorMsg, "vprep passes")
}

func TestNoHint(t *testing.T) {
	if hint := HintForErrorMessage("flatten-loops: something else"); hint != "" {
		t.Fatalf("unexpected hint %q", hint)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if len(cfg.Pipeline) != len(config.DefaultPipeline) {
		t.Fatalf("expected the default pipeline, got %v", cfg.Pipeline)
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("pipeline: [find-exits]\nuse-exit: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(file)
	if err != nil {
		t.Fatalf("failed to load %s: %v", file, err)
	}
	if !cfg.UseExit || len(cfg.Pipeline) != 1 || cfg.Pipeline[0] != config.PassFindExits {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadModule(t *testing.T) {
	file := filepath.Join(t.TempDir(), "m.yaml")
	src := "functions:\n  - {name: f, type: \"void ()\", blocks: [{name: entry, instrs: [{op: ret}]}]}\n"
	if err := os.WriteFile(file, []byte(src), 0600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadModule(file, false)
	if err != nil {
		t.Fatalf("failed to load %s: %v", file, err)
	}
	if m.Function("f") == nil {
		t.Fatalf("function f not loaded")
	}
	_, err = LoadModule(file+".missing", false)
	if err == nil || HintForErrorMessage(err.Error()) == "" {
		t.Fatalf("expected a read error with a hint, got %v", err)
	}
}
