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

package pipeline

import (
	"embed"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/cfg"
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
	"github.com/awslabs/ar-go-vprep/internal/irtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testfsys embed.FS

func callsTo(f *ir.Function, name string) int {
	return len(f.CollectInstrs(func(i *ir.Instr) bool { return i.Calls(name) }))
}

func TestNew(t *testing.T) {
	for _, name := range config.KnownPasses {
		p, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.NotEmpty(t, Descriptions[name], name)
	}
	_, err := New("inline-everything")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	c := config.NewDefault()
	c.Pipeline = []string{config.PassInjectNondet, config.PassDeleteUndefined, config.PassInstrumentAlloc}
	c.UndefinedRetvalNosym = true
	c.AllocNeverFails = true
	passes, err := Build(c)
	require.NoError(t, err)
	var names []string
	for _, p := range passes {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{config.PassInjectNondet, config.PassDeleteUndefinedNosym, config.PassInstrumentAllocNF},
		names)

	c.Pipeline = []string{"unknown"}
	_, err = Build(c)
	assert.Error(t, err)
}

func TestRunDefaultPipeline(t *testing.T) {
	m, c := irtest.LoadTest(t, testfsys, "testdata/default")
	log, logs := irtest.NewLogGroup(c)
	ctx := transform.NewContext(c, log, m)
	passes, err := Build(c)
	require.NoError(t, err)
	require.NoError(t, Run(ctx, m, passes))

	require.Len(t, ctx.Report.Passes, len(config.DefaultPipeline))
	for k, r := range ctx.Report.Passes {
		assert.Equal(t, config.DefaultPipeline[k], r.Name)
	}

	main := m.Function("main")
	// constructors
	assert.Equal(t, 1, callsTo(main, "setup"))
	assert.Nil(t, m.Global("llvm.global_ctors"))
	// injection
	assert.NotNil(t, m.Global("counter").Init)
	assert.False(t, m.Function("read_input").IsDeclaration())
	assert.Positive(t, callsTo(main, verifier.MakeNondet))
	// allocation
	assert.Zero(t, callsTo(main, verifier.LibcMalloc))
	assert.Equal(t, 1, callsTo(main, verifier.Malloc))
	// control flow
	info := cfg.Analyze(main)
	require.NotEmpty(t, info.Loops)
	for _, l := range info.Loops {
		assert.NotEmpty(t, l.Exits)
		assert.Nil(t, l.Parent)
	}
	assert.Equal(t, 1, callsTo(main, verifier.SilentExit))

	// traces are only produced at trace level
	assert.Zero(t, logs.FilterMessageSnippet("module after").Len())
}

func TestRunOptions(t *testing.T) {
	m, c := irtest.LoadTest(t, testfsys, "testdata/nosym")
	require.True(t, c.UseExit)
	log, _ := irtest.NewLogGroup(c)
	ctx := transform.NewContext(c, log, m)
	passes, err := Build(c)
	require.NoError(t, err)
	require.NoError(t, Run(ctx, m, passes))

	main := m.Function("main")
	assert.Equal(t, 1, callsTo(main, verifier.Malloc0))
	assert.Equal(t, 1, callsTo(main, verifier.Exit))
	assert.Zero(t, callsTo(m.Function("read_input"), verifier.MakeNondet))
}

func TestRunTrace(t *testing.T) {
	m, c := irtest.LoadTest(t, testfsys, "testdata/default")
	c.LogLevel = int(config.TraceLevel)
	log, logs := irtest.NewLogGroup(c)
	ctx := transform.NewContext(c, log, m)
	passes, err := Build(c)
	require.NoError(t, err)
	require.NoError(t, Run(ctx, m, passes[:2]))
	assert.Equal(t, 1, logs.FilterMessageSnippet("module after "+config.PassMakeNondet).Len())
}

func TestRunStopsOnError(t *testing.T) {
	m := irtest.Parse(t, `
globals:
  - {name: g, type: i32}
functions:
  - name: f
    type: "void ()"
    blocks:
      - {name: entry, instrs: [{op: ret}]}
`)
	c := config.NewDefault()
	log, _ := irtest.NewLogGroup(c)
	ctx := transform.NewContext(c, log, m)
	passes, err := Build(c)
	require.NoError(t, err)
	err = Run(ctx, m, passes)
	assert.ErrorIs(t, err, transform.ErrMissingMain)
	// internalize-globals failed, the passes after it did not run
	assert.Len(t, ctx.Report.Passes, 2)
}
