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

// Package tools contains utility functions shared by the vprep subcommands.
package tools

import (
	"fmt"
	"os"
	"regexp"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/irio"
)

// LoadConfig loads the config file from configPath. The default config is returned when configPath is empty.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.NewDefault(), nil
	}
	config.SetGlobalConfig(configPath)
	cfg, err := config.LoadGlobal()
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %v", configPath, err)
	}
	return cfg, nil
}

// LoadModule reads the module in filename, or on the standard input if filename is "-"
func LoadModule(filename string, lazy bool) (*ir.Module, error) {
	opts := irio.Options{Lazy: lazy}
	if filename == "-" {
		return irio.Read(os.Stdin, opts)
	}
	return irio.ReadFile(filename, opts)
}

// Captures errors happening before any pass runs (module could not be read)
var regexCouldNotRead = regexp.MustCompile("could not read module")

// Captures errors of passes that insert code in main
var regexMissingMain = regexp.MustCompile("has no main function")

// Captures pipelines naming passes that do not exist
var regexUnknownPass = regexp.MustCompile("unknown pass")

// Captures modules whose bodies cannot be decoded
var regexMaterialize = regexp.MustCompile("cannot load module")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	switch {
	case regexCouldNotRead.MatchString(errMsg):
		return "make sure the path to the module is right, or use - to read it from the standard input"
	case regexMissingMain.MatchString(errMsg):
		return "this pass inserts code at the entry of main; the module should be a complete program"
	case regexUnknownPass.MatchString(errMsg):
		return "run vprep passes to list the passes that can appear in a pipeline"
	case regexMaterialize.MatchString(errMsg):
		return "the module is malformed; run vprep dump on it without --lazy to see the first error"
	}
	return ""
}
