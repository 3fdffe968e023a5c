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
	"fmt"
	"os"
	"path"

	"github.com/awslabs/ar-go-vprep/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the pipeline to run and the options of its passes.
// If some field is not defined in the config file, it keeps the value set by NewDefault.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// Pipeline is the ordered list of transformations to run on the module
	Pipeline []string `yaml:"pipeline"`

	// LeaveAlone lists undefined functions that delete-undefined must neither define nor prune, in addition to
	// the runtime primitives it always leaves alone
	LeaveAlone []string `yaml:"leave-alone"`
}

// Options holds the policy knobs of the transformations
type Options struct {
	// ReportsDir is the directory where the reports will be stored. If the config file does not specify a
	// ReportsDir but sets ReportEffects, then a temporary directory is created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportEffects specifies whether the effects of each pass are written to a report-*.yaml file in ReportsDir
	ReportEffects bool `yaml:"report-effects"`

	// UndefinedRetvalNosym selects the policy where bodies synthesized for undefined functions return zero
	// instead of a nondeterministic value
	UndefinedRetvalNosym bool `yaml:"undefined-retval-nosym"`

	// AllocNeverFails selects the allocation primitives that never return null
	AllocNeverFails bool `yaml:"alloc-never-fails"`

	// UseExit makes find-exits insert the loud exit primitive instead of the silent one
	UseExit bool `yaml:"use-exit"`

	// ChangeAssumes makes find-exits redirect assume calls to the instrumented check
	ChangeAssumes bool `yaml:"change-assumes"`

	// ShadowMode selects how scalar locals receive their nondeterministic value: "alloca" requests it on a
	// shadow stack slot, "global" copies it from a per-type global made nondeterministic at the entry of main
	ShadowMode string `yaml:"shadow-mode"`

	// RemoveErrorCallsUseExit makes remove-error-calls replace error calls by an exit instead of an assume
	RemoveErrorCallsUseExit bool `yaml:"remove-error-calls-use-exit"`

	// AssertFunction is the name of the function replace-asserts turns into error calls
	AssertFunction string `yaml:"assert-function"`

	// StrictIndirectExit turns the warning about possible indirect calls to exit into an error
	StrictIndirectExit bool `yaml:"strict-indirect-exit"`

	// MaxFlattenIterations bounds the number of times flatten-loops is re-applied to reach a fixpoint
	MaxFlattenIterations int `yaml:"max-flatten-iterations"`

	// SourceFile is the C source the module was compiled from. make-nondet reads it to recover variable names.
	// A relative path is relative to the config file.
	SourceFile string `yaml:"source-file"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns a default config running the default pipeline.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Pipeline:   append([]string(nil), DefaultPipeline...),
		LeaveAlone: []string{},
		Options: Options{
			ReportsDir:           "",
			ChangeAssumes:        true,
			ShadowMode:           ShadowAlloca,
			AssertFunction:       DefaultAssertFunction,
			MaxFlattenIterations: DefaultMaxFlattenIterations,
			LogLevel:             int(InfoLevel),
			SilenceWarn:          false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse reads a configuration from the content b of the file filename
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.MaxFlattenIterations <= 0 {
		cfg.MaxFlattenIterations = DefaultMaxFlattenIterations
	}
	if cfg.AssertFunction == "" {
		cfg.AssertFunction = DefaultAssertFunction
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SourceFile != "" && !path.IsAbs(cfg.SourceFile) {
		cfg.SourceFile = cfg.RelPath(cfg.SourceFile)
	}
	if cfg.ReportEffects || cfg.ReportsDir != "" {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks that every pass of the pipeline is known and that the enumerated options have valid values
func (c *Config) Validate() error {
	for _, name := range c.Pipeline {
		if !funcutil.Contains(KnownPasses, name) {
			return fmt.Errorf("unknown pass %q in pipeline", name)
		}
	}
	if c.ShadowMode != ShadowAlloca && c.ShadowMode != ShadowGlobal {
		return fmt.Errorf("shadow-mode must be %q or %q, not %q", ShadowAlloca, ShadowGlobal, c.ShadowMode)
	}
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level must be between %d and %d", ErrLevel, TraceLevel)
	}
	return nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Passes returns the names of the passes to run, with the policy options applied: delete-undefined runs
// without symbolic return values when UndefinedRetvalNosym is set, and instrument-alloc uses the never failing
// primitives when AllocNeverFails is set.
func (c Config) Passes() []string {
	return funcutil.Map(c.Pipeline, func(name string) string {
		switch {
		case name == PassDeleteUndefined && c.UndefinedRetvalNosym:
			return PassDeleteUndefinedNosym
		case name == PassInstrumentAlloc && c.AllocNeverFails:
			return PassInstrumentAllocNF
		}
		return name
	})
}

// IsLeftAlone returns true if the user asked delete-undefined to keep the function name untouched
func (c Config) IsLeftAlone(name string) bool {
	return funcutil.Contains(c.LeaveAlone, name)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
