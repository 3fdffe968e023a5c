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

// Package irtest provides helpers to load test modules and observe the logs of passes.
package irtest

import (
	"errors"
	"io/fs"
	"path"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/irio"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// LoadTest loads the module in the directory dir of fsys, looking for a module.yaml and an optional config.yaml.
// The default config is returned when dir has no config.yaml.
func LoadTest(t testing.TB, fsys fs.FS, dir string) (*ir.Module, *config.Config) {
	t.Helper()
	m := LoadModule(t, fsys, path.Join(dir, "module.yaml"))
	cfgFile := path.Join(dir, "config.yaml")
	b, err := fs.ReadFile(fsys, cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		return m, config.NewDefault()
	}
	if err != nil {
		t.Fatalf("error reading %s: %v", cfgFile, err)
	}
	cfg, err := config.Parse(cfgFile, b)
	if err != nil {
		t.Fatalf("error loading config %s: %v", cfgFile, err)
	}
	return m, cfg
}

// LoadModule reads the module stored in the file name of fsys
func LoadModule(t testing.TB, fsys fs.FS, name string) *ir.Module {
	t.Helper()
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		t.Fatalf("error reading %s: %v", name, err)
	}
	m, err := irio.Decode(b, irio.Options{})
	if err != nil {
		t.Fatalf("error decoding %s: %v", name, err)
	}
	return m
}

// Parse decodes a module written inline in a test
func Parse(t testing.TB, src string) *ir.Module {
	t.Helper()
	m, err := irio.Decode([]byte(src), irio.Options{})
	if err != nil {
		t.Fatalf("error decoding module: %v\n%s", err, src)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("test module is not well formed: %v", err)
	}
	return m
}

// NewLogGroup returns a log group at the level of cfg whose entries are recorded in the returned logs
func NewLogGroup(cfg *config.Config) (*config.LogGroup, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return config.NewLogGroupWithLogger(cfg, zap.New(core)), logs
}

// Messages returns the messages logged at level
func Messages(logs *observer.ObservedLogs, level zapcore.Level) []string {
	var res []string
	for _, e := range logs.FilterLevelExact(level).AllUntimed() {
		res = append(res, e.Message)
	}
	return res
}
