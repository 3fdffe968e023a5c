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

	"github.com/awslabs/ar-go-vprep/analysis/cfg"
	"github.com/awslabs/ar-go-vprep/analysis/irio"
	"github.com/awslabs/ar-go-vprep/cmd/vprep/tools"
	"github.com/awslabs/ar-go-vprep/internal/formatutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dumpFunction string
	dumpYaml     bool
	dumpLazy     bool

	loopsCycles bool
	loopsYaml   bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] module.yaml",
	Short: "Print a module in textual form",
	Long: `Reads a module, checks that it is well formed and prints it. With --yaml the module is printed in the
YAML module format instead, which normalizes the input file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dump(cmd.OutOrStdout(), args[0])
	},
}

var loopsCmd = &cobra.Command{
	Use:   "loops [flags] module.yaml",
	Short: "Classify the loops of the functions of a module",
	Long: `Prints, for each defined function, the number of natural loops, the deepest nesting, the number of loops
without exit and whether the control flow graph is irreducible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return loops(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFunction, "function", "f", "", "only print this function")
	dumpCmd.Flags().BoolVar(&dumpYaml, "yaml", false, "print the module in the YAML format")
	dumpCmd.Flags().BoolVar(&dumpLazy, "lazy", false, "do not decode the bodies of the functions that are not printed")
	loopsCmd.Flags().BoolVar(&loopsCycles, "cycles", false, "count the elementary cycles (may be slow)")
	loopsCmd.Flags().BoolVar(&loopsYaml, "yaml", false, "print the classification in YAML")
}

func dump(w io.Writer, input string) error {
	m, err := tools.LoadModule(input, dumpLazy)
	if err != nil {
		return err
	}
	if dumpFunction != "" {
		f := m.Function(dumpFunction)
		if f == nil {
			return fmt.Errorf("no function %s in %s", dumpFunction, input)
		}
		if err := f.Materialize(); err != nil {
			return err
		}
		fmt.Fprint(w, f.String())
		return nil
	}
	if err := m.MaterializeAll(); err != nil {
		return err
	}
	if err := m.Verify(); err != nil {
		return err
	}
	if dumpYaml {
		return irio.Write(w, m)
	}
	fmt.Fprint(w, m.String())
	return nil
}

func loops(w io.Writer, input string) error {
	m, err := tools.LoadModule(input, false)
	if err != nil {
		return err
	}
	if err := m.Verify(); err != nil {
		return err
	}
	res := cfg.ClassifyModule(m, loopsCycles)
	if loopsYaml {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	fmt.Fprintf(w, "%-30s %6s %6s %9s %6s %8s %s\n", "function", "loops", "depth", "non-term", "self", "regions",
		"irreducible")
	for _, c := range res.Functions {
		line := fmt.Sprintf("%-30s %6d %6d %9d %6d %8d %t", c.Function, c.Loops, c.MaxDepth, c.NonTerminating,
			c.SelfLoops, c.Regions, c.Irreducible)
		switch {
		case c.Irreducible:
			line = formatutil.Red(line)
		case c.NonTerminating > 0 || c.Nested():
			line = formatutil.Yellow(line)
		}
		fmt.Fprintln(w, line)
		if loopsCycles {
			fmt.Fprintf(w, "%-30s %d elementary cycles\n", "", c.Cycles)
		}
	}
	return nil
}
