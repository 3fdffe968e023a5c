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

package main

import (
	"fmt"
	"io"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/irio"
	"github.com/awslabs/ar-go-vprep/analysis/pipeline"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/cmd/vprep/tools"
	"github.com/awslabs/ar-go-vprep/internal/formatutil"
	"github.com/awslabs/ar-go-vprep/internal/funcutil"
	"github.com/spf13/cobra"
)

// runOptions holds the flags of the run command
type runOptions struct {
	configPath string
	output     string
	passes     []string
	lazy       bool
	quiet      bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [flags] module.yaml",
	Short: "Run the pipeline of the config on a module",
	Long: `Reads the module, runs the passes of the pipeline in order and writes the transformed module.
The module is written on the standard output unless -o is given. Use - to read the module from the standard input.
A summary of the changes made by each pass is printed on the standard error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], runOpts)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.configPath, "config", "c", "", "config file path")
	runCmd.Flags().StringVarP(&runOpts.output, "output", "o", "", "output file for the transformed module")
	runCmd.Flags().StringSliceVarP(&runOpts.passes, "passes", "p", nil,
		"comma-separated list of passes to run instead of the pipeline of the config")
	runCmd.Flags().BoolVar(&runOpts.lazy, "lazy", false, "decode function bodies only when a pass reads them")
	runCmd.Flags().BoolVarP(&runOpts.quiet, "quiet", "q", false, "do not print the summary")
}

func runPipeline(out, summary io.Writer, input string, opts runOptions) error {
	cfg, err := tools.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if len(opts.passes) > 0 {
		cfg.Pipeline = opts.passes
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger := config.NewLogGroup(cfg)
	defer logger.Sync() //nolint:errcheck

	passes, err := pipeline.Build(cfg)
	if err != nil {
		return err
	}
	m, err := tools.LoadModule(input, opts.lazy)
	if err != nil {
		return err
	}
	logger.Infof("running %d passes on %s", len(passes), input)

	ctx := transform.NewContext(cfg, logger, m)
	if err := pipeline.Run(ctx, m, passes); err != nil {
		return err
	}
	if opts.output == "" {
		if err := irio.Write(out, m); err != nil {
			return err
		}
	} else if err := irio.WriteFile(opts.output, m); err != nil {
		return err
	}

	if cfg.ReportsDir != "" {
		name, err := transform.WriteReport(ctx.Report, cfg.ReportsDir)
		if err != nil {
			return err
		}
		logger.Infof("report written in %s", name)
	}
	if !opts.quiet {
		printSummary(summary, ctx.Report)
	}
	return nil
}

// printSummary prints which passes changed the module and how many effects of each kind they had
func printSummary(w io.Writer, r *transform.Report) {
	counts := map[string]map[string]int{}
	for _, e := range r.Effects {
		if counts[e.Pass] == nil {
			counts[e.Pass] = map[string]int{}
		}
		counts[e.Pass][e.Kind]++
	}
	fmt.Fprintln(w, formatutil.Bold("Summary"))
	for _, p := range r.Passes {
		status := formatutil.Faint("unchanged")
		if p.Changed {
			status = formatutil.Green("changed")
		}
		fmt.Fprintf(w, "  %-26s %s\n", p.Name, status)
		for _, k := range funcutil.SortedKeys(counts[p.Name]) {
			line := fmt.Sprintf("    %-24s %d", k, counts[p.Name][k])
			if k == transform.EffectSkipped || k == transform.EffectIndirectRisky {
				line = formatutil.Yellow(line)
			}
			fmt.Fprintln(w, line)
		}
	}
}
