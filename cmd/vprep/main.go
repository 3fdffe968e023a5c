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

// vprep prepares LLVM-like modules for verification: it makes unknown values nondeterministic, instruments the
// allocations and normalizes the control flow, following the pipeline given in a config file.
package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-go-vprep/cmd/vprep/tools"
	"github.com/awslabs/ar-go-vprep/internal/formatutil"
	"github.com/spf13/cobra"
)

// Version of the tool
const Version = "v0.3.0"

const usage = `vprep: verification preparation of IR modules

Modules are read and written in the YAML module format. The config file names the pipeline of passes to run
and the options of the passes; without a config file the default pipeline runs with default options.

Examples:
  Run the default pipeline: vprep run -o out.yaml prog.yaml
  Run a configured pipeline: vprep run -c config.yaml -o out.yaml prog.yaml
  List the passes: vprep passes
  Classify the loops of a module: vprep loops prog.yaml`

var colorMode string

var rootCmd = &cobra.Command{
	Use:           "vprep",
	Short:         "vprep - instrument IR modules for verification",
	Long:          usage,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return formatutil.SetColorMode(formatutil.ColorMode(colorMode))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of vprep",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", string(formatutil.ColorAuto),
		"when to color the output: auto, always or never")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(passesCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(loopsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errExit(err)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", formatutil.Red("error:"), err)
	if hint := tools.HintForErrorMessage(err.Error()); hint != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", formatutil.Yellow("hint:"), hint)
	}
	os.Exit(2)
}
