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

package config

import (
	"bytes"
	"embed"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(t *testing.T, filename string) (*Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read file %v: %v", filename, err)
	}
	return Parse(filename, b)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := loadFromTestDir(t, "full.yaml")
	if err != nil {
		t.Fatalf("Error loading full.yaml: %v", err)
	}
	expected := NewDefault()
	expected.sourceFile = filepath.Join("testdata", "full.yaml")
	expected.LogLevel = 4
	expected.UndefinedRetvalNosym = true
	expected.AllocNeverFails = true
	expected.UseExit = true
	expected.ChangeAssumes = false
	expected.ShadowMode = ShadowGlobal
	expected.AssertFunction = "my_assert"
	expected.StrictIndirectExit = true
	expected.MaxFlattenIterations = 8
	expected.SourceFile = filepath.Join("testdata", "prog.c")
	expected.Pipeline = []string{PassExplicitConsdes, PassDeleteUndefined, PassInstrumentAlloc, PassFindExits}
	expected.LeaveAlone = []string{"hook"}
	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf("Loaded config\n%+v\nis not equal to\n%+v", cfg, expected)
	}
	if !cfg.Verbose() {
		t.Errorf("log-level 4 should be verbose")
	}
	if !cfg.IsLeftAlone("hook") || cfg.IsLeftAlone("malloc") {
		t.Errorf("unexpected leave-alone list %v", cfg.LeaveAlone)
	}
}

func TestLoadMinimalConfigKeepsDefaults(t *testing.T) {
	cfg, err := loadFromTestDir(t, "minimal.yaml")
	if err != nil {
		t.Fatalf("Error loading minimal.yaml: %v", err)
	}
	if !reflect.DeepEqual(cfg.Pipeline, DefaultPipeline) {
		t.Errorf("expected the default pipeline, got %v", cfg.Pipeline)
	}
	if !cfg.ChangeAssumes || cfg.ShadowMode != ShadowAlloca || cfg.LogLevel != int(InfoLevel) {
		t.Errorf("defaults were not kept: %+v", cfg.Options)
	}
	if !cfg.SilenceWarn {
		t.Errorf("silence-warn should be set")
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	for file, msg := range map[string]string{
		"bad_pass.yaml":   "unknown pass",
		"bad_shadow.yaml": "shadow-mode",
		"bad_format.yaml": "could not unmarshal",
	} {
		_, err := loadFromTestDir(t, file)
		if err == nil {
			t.Errorf("expected an error loading %s", file)
			continue
		}
		if !strings.Contains(err.Error(), msg) {
			t.Errorf("error loading %s should mention %q: %v", file, msg, err)
		}
	}
}

func TestPassesAppliesPolicies(t *testing.T) {
	cfg := NewDefault()
	cfg.Pipeline = []string{PassDeleteUndefined, PassInstrumentAlloc, PassFindExits}
	if got := cfg.Passes(); !reflect.DeepEqual(got, cfg.Pipeline) {
		t.Errorf("default policies should not rename passes: %v", got)
	}
	cfg.UndefinedRetvalNosym = true
	cfg.AllocNeverFails = true
	expected := []string{PassDeleteUndefinedNosym, PassInstrumentAllocNF, PassFindExits}
	if got := cfg.Passes(); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestLogGroupFiltersByLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := NewDefault()
	cfg.LogLevel = int(WarnLevel)
	l := NewLogGroupWithLogger(cfg, zap.New(core))
	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)
	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "warn 3" || entries[0].Level != zapcore.WarnLevel {
		t.Errorf("unexpected entry %v", entries[0])
	}
	if entries[1].Message != "error 4" || entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("unexpected entry %v", entries[1])
	}
}

func TestLogGroupTraceAndSilence(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := NewDefault()
	cfg.LogLevel = int(TraceLevel)
	cfg.SilenceWarn = true
	l := NewLogGroupWithLogger(cfg, zap.New(core))
	l.Tracef("step")
	l.Warnf("hidden")
	entries := logs.AllUntimed()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "trace" || entries[0].Message != "step" {
		t.Errorf("unexpected entry %v", entries[0])
	}
}

func TestLogGroupSetAllOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogGroup(NewDefault())
	l.SetAllOutput(&buf)
	l.Infof("hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("expected the message in the output, got %q", buf.String())
	}
}
